// Package enquiry handles questions sent by parents and the answers of the team.
package enquiry

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusResponded Status = "responded"
	StatusClosed    Status = "closed"
)

// Communication channels and statuses
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	CommQueued = "queued"
	CommSent   = "sent"
	CommFailed = "failed"
)

var ErrAlreadyClosed = errors.New("this enquiry is closed")

// runAsync runs fire-and-forget work such as emails. Tests replace it.
var runAsync = func(f func()) { go f() }

// Enquiry is a row of the `enquiries` table. CampName is joined in by the repository.
type Enquiry struct {
	ID          string      `db:"id" json:"id"`
	CampID      null.String `db:"camp_id" json:"camp_id"`
	CampName    string      `db:"camp_name" json:"camp_name,omitempty"`
	Name        string      `db:"name" json:"name"`
	Email       string      `db:"email" json:"email"`
	Phone       string      `db:"phone" json:"phone"`
	Message     string      `db:"message" json:"message"`
	Status      Status      `db:"status" json:"status"`
	Response    string      `db:"response" json:"response"`
	RespondedAt null.Time   `db:"responded_at" json:"responded_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Communication is a row of the `communications` table: a message sent to a parent.
type Communication struct {
	ID             string      `db:"id" json:"id"`
	EnquiryID      null.String `db:"enquiry_id" json:"enquiry_id"`
	BookingID      null.String `db:"booking_id" json:"booking_id"`
	RecipientEmail string      `db:"recipient_email" json:"recipient_email"`
	Subject        string      `db:"subject" json:"subject"`
	Body           string      `db:"body" json:"body"`
	Channel        string      `db:"channel" json:"channel"`
	Status         string      `db:"status" json:"status"`
	SentAt         null.Time   `db:"sent_at" json:"sent_at"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// Contact is who hears about enquiries on a camp.
type Contact struct {
	CampName         string `db:"camp_name"`
	OrganisationName string `db:"organisation_name"`
	Email            string `db:"email"`
}

type NewEnquiry struct {
	CampID  string `json:"camp_id" validate:"omitempty,uuid"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required,notblank"`
}

func (ne *NewEnquiry) Validate(validate *validator.Validate) error {
	ne.CampID = core.CleanString(ne.CampID, true /* lower */)
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email, true /* lower */)
	ne.Phone = core.CleanString(ne.Phone)
	ne.Message = strings.TrimSpace(ne.Message)
	return validate.Struct(ne)
}

type Reply struct {
	Response string `json:"response" validate:"required,notblank"`
	Close    bool   `json:"close"`
}

func (r *Reply) Validate(validate *validator.Validate) error {
	r.Response = strings.TrimSpace(r.Response)
	return validate.Struct(r)
}

type Repository interface {
	CreateEnquiry(ctx context.Context, e Enquiry) (Enquiry, error)
	GetEnquiry(ctx context.Context, id string) (Enquiry, error)
	RespondToEnquiry(ctx context.Context, e Enquiry) (Enquiry, error)
	CreateCommunication(ctx context.Context, c Communication) (Communication, error)
	CampContact(ctx context.Context, campID string) (Contact, error)
}

type Service struct {
	repo    Repository
	mailSvc core.EmailService
	conf    *core.Config
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a new enquiry and notifies the organisation running the camp, or the
// team when the enquiry is not about a camp or the organisation has no email.
func (svc *Service) Submit(ctx context.Context, ne NewEnquiry) (Enquiry, error) {
	now := svc.nowFunc()
	e := Enquiry{
		ID:        uuid.New().String(),
		Name:      ne.Name,
		Email:     ne.Email,
		Phone:     ne.Phone,
		Message:   ne.Message,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	to := svc.conf.DefaultFromEmail()
	if ne.CampID != "" {
		contact, err := svc.repo.CampContact(ctx, ne.CampID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return Enquiry{}, core.NewValidationError(nil, core.FieldError{Field: "camp_id", Error: "unknown camp"})
			}
			return Enquiry{}, errors.Wrap(err, "looking up camp contact")
		}
		e.CampID = null.StringFrom(ne.CampID)
		e.CampName = contact.CampName
		if contact.Email != "" {
			to = mail.Address{Name: contact.OrganisationName, Address: contact.Email}
		}
	}

	created, err := svc.repo.CreateEnquiry(ctx, e)
	if err != nil {
		return Enquiry{}, errors.Wrap(err, "creating enquiry")
	}
	created.CampName = e.CampName

	runAsync(func() {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      fmt.Sprintf("New enquiry from %s", created.Name),
			TemplateName: "enquiry_received",
			TemplateData: map[string]interface{}{
				"Name":     created.Name,
				"Email":    created.Email,
				"CampName": created.CampName,
				"Message":  created.Message,
			},
		})
	})
	return created, nil
}

// Respond records the answer to an enquiry, emails it to the parent and logs the message
// in the communications table.
func (svc *Service) Respond(ctx context.Context, id string, r Reply) (Enquiry, error) {
	e, err := svc.repo.GetEnquiry(ctx, id)
	if err != nil {
		return Enquiry{}, err
	}
	if e.Status == StatusClosed {
		return Enquiry{}, core.NewValidationError(ErrAlreadyClosed, core.FieldError{Field: "status", Error: ErrAlreadyClosed.Error()})
	}

	now := svc.nowFunc()
	e.Response = r.Response
	e.RespondedAt = null.TimeFrom(now)
	e.UpdatedAt = now
	e.Status = StatusResponded
	if r.Close {
		e.Status = StatusClosed
	}
	updated, err := svc.repo.RespondToEnquiry(ctx, e)
	if err != nil {
		return Enquiry{}, errors.Wrap(err, "saving response")
	}

	subject := fmt.Sprintf("Re: your enquiry to %s", svc.conf.AppName)
	_, err = svc.repo.CreateCommunication(ctx, Communication{
		ID:             uuid.New().String(),
		EnquiryID:      null.StringFrom(e.ID),
		RecipientEmail: e.Email,
		Subject:        subject,
		Body:           r.Response,
		Channel:        ChannelEmail,
		Status:         CommSent,
		SentAt:         null.TimeFrom(now),
		CreatedAt:      now,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("enquiry.Respond: recording communication for %s: %v", e.ID, err), err)
	}

	runAsync(func() {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: e.Name, Address: e.Email}},
			Subject:      subject,
			TemplateName: "enquiry_response",
			TemplateData: map[string]interface{}{
				"Name":     e.Name,
				"Response": e.Response,
				"Message":  e.Message,
			},
		})
	})
	return updated, nil
}
