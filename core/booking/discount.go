package booking

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

var (
	ErrInvalidDiscountCode = errors.New("invalid discount code")
	ErrDiscountInactive    = errors.New("this discount code is no longer active")
	ErrDiscountNotStarted  = errors.New("this discount code is not valid yet")
	ErrDiscountExpired     = errors.New("this discount code has expired")
	ErrDiscountExhausted   = errors.New("this discount code has reached its usage limit")
	ErrDiscountNotForCamp  = errors.New("this discount code does not apply to this camp")
)

// DiscountCode is a row of the `discount_codes` table.
type DiscountCode struct {
	ID           string      `db:"id" json:"id"`
	Code         string      `db:"code" json:"code"`
	Description  string      `db:"description" json:"description"`
	DiscountType string      `db:"discount_type" json:"discount_type"`
	Value        float64     `db:"value" json:"value"`
	CampID       null.String `db:"camp_id" json:"camp_id"`
	ValidFrom    null.Time   `db:"valid_from" json:"valid_from"`
	ValidUntil   null.Time   `db:"valid_until" json:"valid_until"`
	MaxUses      int         `db:"max_uses" json:"max_uses"` // 0: unlimited
	UsedCount    int         `db:"used_count" json:"used_count"`
	Active       bool        `db:"active" json:"active"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// NormalizeCode is how codes are compared: trimmed, upper case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check reports why d cannot be used for campID at now, if it cannot.
// Validity dates are whole days: valid_until includes the whole day.
func (d DiscountCode) Check(campID string, now time.Time) error {
	if !d.Active {
		return ErrDiscountInactive
	}
	today := truncateDay(now)
	if d.ValidFrom.Valid && today.Before(truncateDay(d.ValidFrom.Time)) {
		return ErrDiscountNotStarted
	}
	if d.ValidUntil.Valid && today.After(truncateDay(d.ValidUntil.Time)) {
		return ErrDiscountExpired
	}
	if d.MaxUses > 0 && d.UsedCount >= d.MaxUses {
		return ErrDiscountExhausted
	}
	if d.CampID.Valid && d.CampID.String != "" && d.CampID.String != campID {
		return ErrDiscountNotForCamp
	}
	return nil
}

// Apply returns the discount granted on amount, never more than amount.
func (d DiscountCode) Apply(amount float64) float64 {
	if amount <= 0 || d.Value <= 0 {
		return 0
	}
	var discount float64
	switch d.DiscountType {
	case DiscountPercentage:
		discount = amount * d.Value / 100
	case DiscountFixed:
		discount = d.Value
	}
	discount = math.Min(discount, amount)
	return math.Round(discount*100) / 100
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Quote is the outcome of applying a discount code to a camp price.
type Quote struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	DiscountType   string  `json:"discount_type"`
	Value          float64 `json:"value"`
	Amount         float64 `json:"amount"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	Currency       string  `json:"currency"`
}
