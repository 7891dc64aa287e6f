package notification

import (
	appnotification "github.com/bizhub/backend/internal/application/notification"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NewMoneyFormatter formats amounts with the currency symbol and grouping of
// the given locale, e.g. "GHS 1,234.50". Unknown currency codes fall back to
// the plain format.
func NewMoneyFormatter(locale string) appnotification.MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	return func(amount decimal.Decimal, code string) string {
		unit, err := currency.ParseISO(code)
		if err != nil {
			return appnotification.PlainMoney(amount, code)
		}
		return printer.Sprint(currency.Symbol(unit.Amount(amount.Round(2).InexactFloat64())))
	}
}
