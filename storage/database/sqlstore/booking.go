package sqlstore

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/booking"
)

type bookingRepository struct {
	*Store
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(s *Store) booking.Repository {
	return &bookingRepository{Store: s}
}

func (repo *bookingRepository) selectBookings() sq.SelectBuilder {
	return repo.sb.
		Select(
			"b.*",
			"COALESCE(c.name, '') AS camp_name",
			"COALESCE(p.name, '') AS parent_name",
			"COALESCE(ch.name, '') AS child_name",
		).
		From("bookings b").
		LeftJoin("camps c ON c.id = b.camp_id").
		LeftJoin("parents p ON p.id = b.parent_id").
		LeftJoin("children ch ON ch.id = b.child_id")
}

func (repo *bookingRepository) GetParentByEmail(ctx context.Context, email string) (booking.Parent, error) {
	b := repo.sb.Select("*").From("parents").Where(lowerEq("email", email)).Limit(1)
	var p booking.Parent
	if err := repo.getx(ctx, repo.db, &p, b); err != nil {
		return booking.Parent{}, errors.Wrap(err, "finding parent")
	}
	return p, nil
}

func (repo *bookingRepository) CreateParent(ctx context.Context, p booking.Parent) (booking.Parent, error) {
	b := repo.sb.Insert("parents").SetMap(map[string]interface{}{
		"id":         p.ID,
		"profile_id": p.ProfileID,
		"name":       p.Name,
		"email":      strings.ToLower(p.Email),
		"phone":      p.Phone,
		"address":    p.Address,
		"created_at": p.CreatedAt.UTC(),
		"updated_at": p.UpdatedAt.UTC(),
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return booking.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return p, nil
}

func (repo *bookingRepository) CreateChild(ctx context.Context, c booking.Child) (booking.Child, error) {
	b := repo.sb.Insert("children").SetMap(map[string]interface{}{
		"id":                   c.ID,
		"parent_id":            c.ParentID,
		"name":                 c.Name,
		"date_of_birth":        c.DateOfBirth,
		"medical_notes":        c.MedicalNotes,
		"dietary_requirements": c.DietaryRequirements,
		"created_at":           c.CreatedAt.UTC(),
		"updated_at":           c.UpdatedAt.UTC(),
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return booking.Child{}, errors.Wrap(err, "inserting child")
	}
	return c, nil
}

// GetDiscountCode matches code case-insensitively; callers pass it upper-cased.
func (repo *bookingRepository) GetDiscountCode(ctx context.Context, code string) (booking.DiscountCode, error) {
	b := repo.sb.Select("*").From("discount_codes").Where(sq.Expr("UPPER(code) = ?", strings.ToUpper(code))).Limit(1)
	var dc booking.DiscountCode
	if err := repo.getx(ctx, repo.db, &dc, b); err != nil {
		return booking.DiscountCode{}, errors.Wrap(err, "finding discount code")
	}
	return dc, nil
}

func (repo *bookingRepository) IncrementDiscountUsage(ctx context.Context, id string) error {
	b := repo.sb.Update("discount_codes").
		Set("used_count", sq.Expr("used_count + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	return errors.Wrap(repo.execOne(ctx, b), "incrementing discount usage")
}

func (repo *bookingRepository) CreateBooking(ctx context.Context, bk booking.Booking) (booking.Booking, error) {
	b := repo.sb.Insert("bookings").SetMap(map[string]interface{}{
		"id":               bk.ID,
		"camp_id":          bk.CampID,
		"parent_id":        bk.ParentID,
		"child_id":         bk.ChildID,
		"discount_code_id": bk.DiscountCodeID,
		"status":           bk.Status,
		"payment_status":   bk.PaymentStatus,
		"amount":           bk.Amount,
		"discount_amount":  bk.DiscountAmount,
		"currency":         bk.Currency,
		"notes":            bk.Notes,
		"created_at":       bk.CreatedAt.UTC(),
		"updated_at":       bk.UpdatedAt.UTC(),
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return booking.Booking{}, errors.Wrap(err, "inserting booking")
	}
	return repo.GetBooking(ctx, bk.ID)
}

func (repo *bookingRepository) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	var bk booking.Booking
	if err := repo.getx(ctx, repo.db, &bk, repo.selectBookings().Where(sq.Eq{"b.id": id})); err != nil {
		return booking.Booking{}, errors.Wrap(err, "finding booking")
	}
	return bk, nil
}

func (repo *bookingRepository) SetBookingStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) (booking.Booking, error) {
	b := repo.sb.Update("bookings").
		SetMap(map[string]interface{}{"status": status, "updated_at": updatedAt.UTC()}).
		Where(sq.Eq{"id": id})
	if err := repo.execOne(ctx, b); err != nil {
		return booking.Booking{}, errors.Wrap(err, "setting booking status")
	}
	return repo.GetBooking(ctx, id)
}

func (repo *bookingRepository) countByStatus(ctx context.Context, table string) ([]booking.StatusCount, error) {
	b := repo.sb.Select("status", "COUNT(*) AS count").From(table).GroupBy("status").OrderBy("status")
	counts := make([]booking.StatusCount, 0)
	if err := repo.selectx(ctx, repo.db, &counts, b); err != nil {
		return nil, errors.Wrapf(err, "counting %s", table)
	}
	return counts, nil
}

func (repo *bookingRepository) CountCampsByStatus(ctx context.Context) ([]booking.StatusCount, error) {
	return repo.countByStatus(ctx, "camps")
}

func (repo *bookingRepository) CountBookingsByStatus(ctx context.Context) ([]booking.StatusCount, error) {
	return repo.countByStatus(ctx, "bookings")
}

func (repo *bookingRepository) RevenueByCurrency(ctx context.Context, statuses ...booking.Status) ([]booking.CurrencyTotal, error) {
	b := repo.sb.Select("currency", "COALESCE(SUM(amount), 0) AS total").
		From("bookings").
		GroupBy("currency").
		OrderBy("currency")
	if len(statuses) > 0 {
		b = b.Where(sq.Eq{"status": statuses})
	}
	totals := make([]booking.CurrencyTotal, 0)
	if err := repo.selectx(ctx, repo.db, &totals, b); err != nil {
		return nil, errors.Wrap(err, "summing revenue")
	}
	return totals, nil
}

func (repo *bookingRepository) CountEnquiries(ctx context.Context, status string) (int, error) {
	b := repo.sb.Select("COUNT(*)").From("enquiries")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	n, err := repo.count(ctx, b)
	return n, errors.Wrap(err, "counting enquiries")
}

func (repo *bookingRepository) RecentBookings(ctx context.Context, limit int) ([]booking.Booking, error) {
	b := repo.selectBookings().OrderBy("b.created_at DESC", "b.id ASC").Limit(uint64(limit))
	bookings := make([]booking.Booking, 0)
	if err := repo.selectx(ctx, repo.db, &bookings, b); err != nil {
		return nil, errors.Wrap(err, "querying recent bookings")
	}
	return bookings, nil
}
