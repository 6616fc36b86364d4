package booking

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

var Statuses = []Status{StatusPending, StatusConfirmed, StatusWaitlisted, StatusCancelled, StatusCompleted}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Payment statuses
const (
	PaymentUnpaid      = "unpaid"
	PaymentDepositPaid = "deposit_paid"
	PaymentPaid        = "paid"
	PaymentRefunded    = "refunded"
)

// Booking is a row of the `bookings` table. Camp, parent and child names are joined in by
// the repository when listing.
type Booking struct {
	ID             string      `db:"id" json:"id"`
	CampID         string      `db:"camp_id" json:"camp_id"`
	ParentID       string      `db:"parent_id" json:"parent_id"`
	ChildID        string      `db:"child_id" json:"child_id"`
	DiscountCodeID null.String `db:"discount_code_id" json:"discount_code_id"`
	Status         Status      `db:"status" json:"status"`
	PaymentStatus  string      `db:"payment_status" json:"payment_status"`
	Amount         float64     `db:"amount" json:"amount"`
	DiscountAmount float64     `db:"discount_amount" json:"discount_amount"`
	Currency       string      `db:"currency" json:"currency"`
	Notes          string      `db:"notes" json:"notes"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"` // UTC

	CampName   string `db:"camp_name" json:"camp_name,omitempty"`
	ParentName string `db:"parent_name" json:"parent_name,omitempty"`
	ChildName  string `db:"child_name" json:"child_name,omitempty"`
}

// Parent is a row of the `parents` table.
type Parent struct {
	ID        string      `db:"id" json:"id"`
	ProfileID null.String `db:"profile_id" json:"profile_id"`
	Name      string      `db:"name" json:"name"`
	Email     string      `db:"email" json:"email"`
	Phone     string      `db:"phone" json:"phone"`
	Address   string      `db:"address" json:"address"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Child is a row of the `children` table.
type Child struct {
	ID                  string    `db:"id" json:"id"`
	ParentID            string    `db:"parent_id" json:"parent_id"`
	Name                string    `db:"name" json:"name"`
	DateOfBirth         null.Time `db:"date_of_birth" json:"date_of_birth"`
	MedicalNotes        string    `db:"medical_notes" json:"medical_notes"`
	DietaryRequirements string    `db:"dietary_requirements" json:"dietary_requirements"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// NewBooking is what the booking widget submits.
type NewBooking struct {
	ParentName          string `json:"parent_name" validate:"required"`
	ParentEmail         string `json:"parent_email" validate:"required,email"`
	ParentPhone         string `json:"parent_phone"`
	ChildName           string `json:"child_name" validate:"required"`
	ChildDateOfBirth    string `json:"child_date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	MedicalNotes        string `json:"medical_notes"`
	DietaryRequirements string `json:"dietary_requirements"`
	DiscountCode        string `json:"discount_code"`
	Notes               string `json:"notes"`
}

func (nb *NewBooking) Clean() {
	nb.ParentName = strings.TrimSpace(nb.ParentName)
	nb.ParentEmail = strings.ToLower(strings.TrimSpace(nb.ParentEmail))
	nb.ParentPhone = strings.TrimSpace(nb.ParentPhone)
	nb.ChildName = strings.TrimSpace(nb.ChildName)
	nb.ChildDateOfBirth = strings.TrimSpace(nb.ChildDateOfBirth)
	nb.DiscountCode = NormalizeCode(nb.DiscountCode)
	nb.Notes = strings.TrimSpace(nb.Notes)
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

type CurrencyTotal struct {
	Currency string  `db:"currency" json:"currency"`
	Total    float64 `db:"total" json:"total"`
}

// Dashboard gathers the admin overview figures.
type Dashboard struct {
	CampsByStatus    map[string]int `json:"camps_by_status"`
	BookingsByStatus map[string]int `json:"bookings_by_status"`
	Revenue          float64        `json:"revenue"` // confirmed and completed bookings, in RevenueCurrency
	RevenueCurrency  string         `json:"revenue_currency"`
	OpenEnquiries    int            `json:"open_enquiries"`
	RecentBookings   []Booking      `json:"recent_bookings"`
}

func (nb *NewBooking) Validate(validate *validator.Validate) error {
	nb.Clean()
	return validate.Struct(nb)
}
