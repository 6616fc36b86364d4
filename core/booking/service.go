package booking

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/camp"
	"github.com/trezcool/summercamps/core/currency"
)

const recentBookingsLimit = 10

var ErrInvalidStatus = errors.New("invalid booking status")

// runAsync runs fire-and-forget work such as emails. Tests replace it.
var runAsync = func(f func()) { go f() }

type (
	Repository interface {
		GetParentByEmail(ctx context.Context, email string) (Parent, error)
		CreateParent(ctx context.Context, p Parent) (Parent, error)
		CreateChild(ctx context.Context, c Child) (Child, error)
		GetDiscountCode(ctx context.Context, code string) (DiscountCode, error)
		IncrementDiscountUsage(ctx context.Context, id string) error
		CreateBooking(ctx context.Context, b Booking) (Booking, error)
		GetBooking(ctx context.Context, id string) (Booking, error)
		SetBookingStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Booking, error)
		CountCampsByStatus(ctx context.Context) ([]StatusCount, error)
		CountBookingsByStatus(ctx context.Context) ([]StatusCount, error)
		RevenueByCurrency(ctx context.Context, statuses ...Status) ([]CurrencyTotal, error)
		CountEnquiries(ctx context.Context, status string) (int, error)
		RecentBookings(ctx context.Context, limit int) ([]Booking, error)
	}

	// Metrics records booking outcomes.
	Metrics interface {
		ObserveBooking(status string)
	}

	nopMetrics struct{}
)

func (nopMetrics) ObserveBooking(string) {}

type Service struct {
	repo    Repository
	camps   camp.Repository
	mailSvc core.EmailService
	metrics Metrics
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, camps camp.Repository, mailSvc core.EmailService, metrics Metrics, logger core.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		repo:    repo,
		camps:   camps,
		mailSvc: mailSvc,
		metrics: metrics,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) bookableCamp(ctx context.Context, slug string) (camp.Camp, error) {
	c, err := svc.camps.GetCamp(ctx, camp.GetFilter{Slug: core.CleanString(slug, true /* lower */)})
	if err != nil {
		return camp.Camp{}, err
	}
	if c.Status != camp.StatusPublished {
		return camp.Camp{}, core.ErrNotFound
	}
	return c, nil
}

func (svc *Service) usableDiscount(ctx context.Context, code, campID string) (DiscountCode, error) {
	dc, err := svc.repo.GetDiscountCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return DiscountCode{}, discountError(ErrInvalidDiscountCode)
		}
		return DiscountCode{}, err
	}
	if err := dc.Check(campID, svc.nowFunc()); err != nil {
		return DiscountCode{}, discountError(err)
	}
	return dc, nil
}

func discountError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "discount_code", Error: err.Error()})
}

// Quote applies a discount code to the price of a camp without using it.
func (svc *Service) Quote(ctx context.Context, campSlug, code string) (Quote, error) {
	c, err := svc.bookableCamp(ctx, campSlug)
	if err != nil {
		return Quote{}, err
	}
	dc, err := svc.usableDiscount(ctx, code, c.ID)
	if err != nil {
		return Quote{}, err
	}
	discount := dc.Apply(c.Price)
	return Quote{
		Code:           dc.Code,
		Description:    dc.Description,
		DiscountType:   dc.DiscountType,
		Value:          dc.Value,
		Amount:         c.Price,
		DiscountAmount: discount,
		FinalAmount:    c.Price - discount,
		Currency:       c.Currency,
	}, nil
}

// Create books a published camp. The parent is matched by email or created, the child is
// always created, and the booking is waitlisted when the camp is full.
func (svc *Service) Create(ctx context.Context, campSlug string, nb NewBooking) (Booking, error) {
	nb.Clean()
	c, err := svc.bookableCamp(ctx, campSlug)
	if err != nil {
		return Booking{}, err
	}

	var dc DiscountCode
	if nb.DiscountCode != "" {
		if dc, err = svc.usableDiscount(ctx, nb.DiscountCode, c.ID); err != nil {
			return Booking{}, err
		}
	}

	now := svc.nowFunc()
	parent, err := svc.findOrCreateParent(ctx, nb, now)
	if err != nil {
		return Booking{}, err
	}

	child := Child{
		ID:                  uuid.New().String(),
		ParentID:            parent.ID,
		Name:                nb.ChildName,
		MedicalNotes:        nb.MedicalNotes,
		DietaryRequirements: nb.DietaryRequirements,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if nb.ChildDateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", nb.ChildDateOfBirth)
		if err != nil {
			return Booking{}, core.NewValidationError(err, core.FieldError{Field: "child_date_of_birth", Error: "Must be a valid date"})
		}
		child.DateOfBirth = null.TimeFrom(dob)
	}
	if child, err = svc.repo.CreateChild(ctx, child); err != nil {
		return Booking{}, errors.Wrap(err, "creating child")
	}

	status := StatusPending
	if c.IsFull() {
		status = StatusWaitlisted
	}
	discount := dc.Apply(c.Price)
	b := Booking{
		ID:             uuid.New().String(),
		CampID:         c.ID,
		ParentID:       parent.ID,
		ChildID:        child.ID,
		Status:         status,
		PaymentStatus:  PaymentUnpaid,
		Amount:         c.Price - discount,
		DiscountAmount: discount,
		Currency:       c.Currency,
		Notes:          nb.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if dc.ID != "" {
		b.DiscountCodeID = null.StringFrom(dc.ID)
	}
	if b, err = svc.repo.CreateBooking(ctx, b); err != nil {
		return Booking{}, errors.Wrap(err, "creating booking")
	}
	b.CampName, b.ParentName, b.ChildName = c.Name, parent.Name, child.Name

	if dc.ID != "" {
		if err := svc.repo.IncrementDiscountUsage(ctx, dc.ID); err != nil {
			svc.logger.Error(fmt.Sprintf("booking.Create: counting use of %s: %v", dc.Code, err), err)
		}
	}
	svc.metrics.ObserveBooking(string(b.Status))

	to := mail.Address{Name: parent.Name, Address: parent.Email}
	runAsync(func() { svc.sendConfirmation(to, b) })
	return b, nil
}

func (svc *Service) findOrCreateParent(ctx context.Context, nb NewBooking, now time.Time) (Parent, error) {
	parent, err := svc.repo.GetParentByEmail(ctx, nb.ParentEmail)
	if err == nil {
		return parent, nil
	}
	if errors.Cause(err) != core.ErrNotFound {
		return Parent{}, errors.Wrap(err, "looking up parent")
	}
	parent, err = svc.repo.CreateParent(ctx, Parent{
		ID:        uuid.New().String(),
		Name:      nb.ParentName,
		Email:     nb.ParentEmail,
		Phone:     nb.ParentPhone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return parent, errors.Wrap(err, "creating parent")
}

func (svc *Service) sendConfirmation(to mail.Address, b Booking) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      fmt.Sprintf("Your booking for %s", b.CampName),
		TemplateName: "booking_confirmation",
		TemplateData: map[string]interface{}{
			"ParentName": to.Name,
			"CampName":   b.CampName,
			"ChildName":  b.ChildName,
			"BookingID":  b.ID,
			"Status":     string(b.Status),
			"Amount":     currency.Format(b.Amount, b.Currency),
		},
	})
}

// placeHeld is 1 when a booking in status s occupies a place at its camp.
func placeHeld(s Status) int {
	if s == StatusConfirmed || s == StatusCompleted {
		return 1
	}
	return 0
}

// UpdateStatus changes the status of a booking and keeps the enrolment count of its camp
// in step: moving into confirmed or completed takes a place, moving out of them frees it.
func (svc *Service) UpdateStatus(ctx context.Context, id string, status Status) (Booking, error) {
	if !status.IsValid() {
		return Booking{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	b, err := svc.repo.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.Status == status {
		return b, nil
	}

	updated, err := svc.repo.SetBookingStatus(ctx, id, status, svc.nowFunc())
	if err != nil {
		return Booking{}, err
	}

	if delta := placeHeld(status) - placeHeld(b.Status); delta != 0 {
		if err := svc.camps.AdjustEnrolledCount(ctx, b.CampID, delta); err != nil {
			return updated, errors.Wrap(err, "updating enrolment count")
		}
	}
	svc.metrics.ObserveBooking(string(status))
	return updated, nil
}

// Dashboard gathers the admin overview. Revenue is converted to revenueCurrency.
func (svc *Service) Dashboard(ctx context.Context, revenueCurrency string) (Dashboard, error) {
	if !currency.IsSupported(revenueCurrency) {
		revenueCurrency = currency.Default
	}
	dash := Dashboard{
		CampsByStatus:    make(map[string]int),
		BookingsByStatus: make(map[string]int),
		RevenueCurrency:  revenueCurrency,
	}

	camps, err := svc.repo.CountCampsByStatus(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting camps")
	}
	for _, st := range camp.Statuses {
		dash.CampsByStatus[string(st)] = 0
	}
	for _, sc := range camps {
		dash.CampsByStatus[sc.Status] = sc.Count
	}

	bookings, err := svc.repo.CountBookingsByStatus(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting bookings")
	}
	for _, st := range Statuses {
		dash.BookingsByStatus[string(st)] = 0
	}
	for _, sc := range bookings {
		dash.BookingsByStatus[sc.Status] = sc.Count
	}

	totals, err := svc.repo.RevenueByCurrency(ctx, StatusConfirmed, StatusCompleted)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "summing revenue")
	}
	for _, tot := range totals {
		amount, err := currency.Convert(tot.Total, tot.Currency, revenueCurrency)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("booking.Dashboard: skipping revenue in %q: %v", tot.Currency, err))
			continue
		}
		dash.Revenue += amount
	}
	dash.Revenue = currency.Round(dash.Revenue, revenueCurrency)

	if dash.OpenEnquiries, err = svc.repo.CountEnquiries(ctx, "new"); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting enquiries")
	}
	if dash.RecentBookings, err = svc.repo.RecentBookings(ctx, recentBookingsLimit); err != nil {
		return Dashboard{}, errors.Wrap(err, "querying recent bookings")
	}
	if dash.RecentBookings == nil {
		dash.RecentBookings = []Booking{}
	}
	return dash, nil
}
