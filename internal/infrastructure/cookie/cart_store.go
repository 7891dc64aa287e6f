package cookie

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bizhub/backend/internal/domain/shared"
	"github.com/bizhub/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CartCookieName    = "cart"
	SessionCookieName = "cart_session"

	// browsers drop cookies over 4096 bytes including name and attributes
	maxCookieValue = 3800
)

// ErrCartTooLarge is returned when the sealed cart no longer fits a cookie
var ErrCartTooLarge = shared.NewDomainError("CART_TOO_LARGE", "Cart has too many items")

// Options controls the cookie attributes
type Options struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// CartStore loads and saves the cart from request cookies
type CartStore struct {
	sealer *Sealer
	opts   Options
	logger *zap.Logger
}

// NewCartStore creates a new CartStore
func NewCartStore(sealer *Sealer, opts Options, logger *zap.Logger) *CartStore {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}
	return &CartStore{sealer: sealer, opts: opts, logger: logger}
}

// Load returns the request's cart. A missing or tampered cart cookie yields
// an empty cart; a missing session cookie yields a new session id.
func (s *CartStore) Load(r *http.Request, tenantID uuid.UUID) *storefront.Cart {
	sessionID := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			sessionID = c.Value
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cart := storefront.NewCart(sessionID)
	c, err := r.Cookie(CartCookieName)
	if err != nil {
		return cart
	}
	plain, err := s.sealer.Open(tenantID.String(), c.Value)
	if err != nil {
		s.logger.Debug("Discarding unreadable cart cookie", zap.String("session_id", sessionID))
		return cart
	}
	var stored storefront.Cart
	if err := json.Unmarshal(plain, &stored); err != nil || stored.SessionID != sessionID {
		return cart
	}
	if stored.Lines == nil {
		stored.Lines = []storefront.CartLine{}
	}
	return &stored
}

// Save writes the cart and session cookies. An empty cart clears the cart
// cookie but keeps the session.
func (s *CartStore) Save(w http.ResponseWriter, tenantID uuid.UUID, cart *storefront.Cart) error {
	http.SetCookie(w, s.cookie(SessionCookieName, cart.SessionID, s.opts.MaxAge))

	if cart.IsEmpty() && cart.Email == "" {
		http.SetCookie(w, s.cookie(CartCookieName, "", -1))
		return nil
	}

	plain, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(tenantID.String(), plain)
	if err != nil {
		return err
	}
	if len(sealed) > maxCookieValue {
		return ErrCartTooLarge
	}
	http.SetCookie(w, s.cookie(CartCookieName, sealed, s.opts.MaxAge))
	return nil
}

func (s *CartStore) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}
