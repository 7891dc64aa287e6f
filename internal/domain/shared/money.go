package shared

import "github.com/shopspring/decimal"

const (
	// MoneyScale is the number of decimal places kept for amounts
	MoneyScale int32 = 2
	// CostScale is the number of decimal places kept for unit costs
	CostScale int32 = 4
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount half away from zero to 2 places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Percent returns amount * rate / 100, rounded as money
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(rate).Div(hundred))
}

// ToMinorUnits converts an amount to the smallest currency unit (pesewas, cents)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts minor units back to an amount
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
