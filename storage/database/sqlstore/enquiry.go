package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/enquiry"
)

type enquiryRepository struct {
	*Store
}

var _ enquiry.Repository = (*enquiryRepository)(nil) // interface compliance check

func NewEnquiryRepository(s *Store) enquiry.Repository {
	return &enquiryRepository{Store: s}
}

func (repo *enquiryRepository) CreateEnquiry(ctx context.Context, e enquiry.Enquiry) (enquiry.Enquiry, error) {
	b := repo.sb.Insert("enquiries").SetMap(map[string]interface{}{
		"id":           e.ID,
		"camp_id":      e.CampID,
		"name":         e.Name,
		"email":        e.Email,
		"phone":        e.Phone,
		"message":      e.Message,
		"status":       e.Status,
		"response":     e.Response,
		"responded_at": e.RespondedAt,
		"created_at":   e.CreatedAt.UTC(),
		"updated_at":   e.UpdatedAt.UTC(),
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return enquiry.Enquiry{}, errors.Wrap(err, "inserting enquiry")
	}
	return repo.GetEnquiry(ctx, e.ID)
}

func (repo *enquiryRepository) GetEnquiry(ctx context.Context, id string) (enquiry.Enquiry, error) {
	b := repo.sb.Select("e.*", "COALESCE(c.name, '') AS camp_name").
		From("enquiries e").
		LeftJoin("camps c ON c.id = e.camp_id").
		Where(sq.Eq{"e.id": id})
	var e enquiry.Enquiry
	if err := repo.getx(ctx, repo.db, &e, b); err != nil {
		return enquiry.Enquiry{}, errors.Wrap(err, "finding enquiry")
	}
	return e, nil
}

func (repo *enquiryRepository) RespondToEnquiry(ctx context.Context, e enquiry.Enquiry) (enquiry.Enquiry, error) {
	b := repo.sb.Update("enquiries").
		SetMap(map[string]interface{}{
			"status":       e.Status,
			"response":     e.Response,
			"responded_at": e.RespondedAt,
			"updated_at":   e.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": e.ID})
	if err := repo.execOne(ctx, b); err != nil {
		return enquiry.Enquiry{}, errors.Wrap(err, "responding to enquiry")
	}
	return repo.GetEnquiry(ctx, e.ID)
}

func (repo *enquiryRepository) CreateCommunication(ctx context.Context, c enquiry.Communication) (enquiry.Communication, error) {
	b := repo.sb.Insert("communications").SetMap(map[string]interface{}{
		"id":              c.ID,
		"enquiry_id":      c.EnquiryID,
		"booking_id":      c.BookingID,
		"recipient_email": c.RecipientEmail,
		"subject":         c.Subject,
		"body":            c.Body,
		"channel":         c.Channel,
		"status":          c.Status,
		"sent_at":         c.SentAt,
		"created_at":      c.CreatedAt.UTC(),
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return enquiry.Communication{}, errors.Wrap(err, "inserting communication")
	}
	return c, nil
}

// CampContact finds who answers the enquiries of a camp.
func (repo *enquiryRepository) CampContact(ctx context.Context, campID string) (enquiry.Contact, error) {
	b := repo.sb.Select("c.name AS camp_name", "COALESCE(o.name, '') AS organisation_name", "COALESCE(o.email, '') AS email").
		From("camps c").
		LeftJoin("organisations o ON o.id = c.organisation_id").
		Where(sq.Eq{"c.id": campID})
	var contact enquiry.Contact
	if err := repo.getx(ctx, repo.db, &contact, b); err != nil {
		return enquiry.Contact{}, errors.Wrap(err, "finding camp contact")
	}
	return contact, nil
}
