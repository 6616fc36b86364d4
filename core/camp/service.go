package camp

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/currency"
)

var (
	ErrInvalidStatus    = errors.New("invalid camp status")
	ErrUnsupportedMedia = errors.New("only image and video files can be uploaded")
)

type Repository interface {
	QueryCamps(ctx context.Context, filter QueryFilter) ([]Camp, int, error)
	GetCamp(ctx context.Context, filter GetFilter) (Camp, error)
	ApprovedFeedback(ctx context.Context, campID string) ([]Feedback, error)
	SetCampStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Camp, error)
	SetCampMedia(ctx context.Context, c Camp) (Camp, error)
	AdjustEnrolledCount(ctx context.Context, id string, delta int) error
}

type Service struct {
	repo    Repository
	blobs   core.BlobStore
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, blobs core.BlobStore, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// ListPublished returns a page of published camps priced in displayCurrency, plus the total count.
func (svc *Service) ListPublished(ctx context.Context, filter QueryFilter, displayCurrency string) ([]Listing, int, error) {
	filter.Clean()
	filter.Pagination.Clean()
	filter.Statuses = []Status{StatusPublished}

	camps, count, err := svc.repo.QueryCamps(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying camps")
	}
	listings := make([]Listing, 0, len(camps))
	for _, c := range camps {
		listings = append(listings, toListing(c, displayCurrency))
	}
	return listings, count, nil
}

// GetPublished returns a published camp with its approved feedback.
func (svc *Service) GetPublished(ctx context.Context, slug, displayCurrency string) (Detail, error) {
	c, err := svc.repo.GetCamp(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
	if err != nil {
		return Detail{}, err
	}
	if c.Status != StatusPublished {
		return Detail{}, core.ErrNotFound
	}

	feedback, err := svc.repo.ApprovedFeedback(ctx, c.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying feedback")
	}
	detail := Detail{Listing: toListing(c, displayCurrency), Feedback: feedback, ReviewCount: len(feedback)}
	if len(feedback) > 0 {
		var sum int
		for _, fb := range feedback {
			sum += fb.Rating
		}
		detail.AverageRating = math.Round(float64(sum)/float64(len(feedback))*10) / 10
	}
	return detail, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Camp, error) {
	return svc.repo.GetCamp(ctx, GetFilter{ID: id})
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Camp, error) {
	return svc.repo.GetCamp(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func toListing(c Camp, displayCurrency string) Listing {
	l := Listing{Camp: c, DisplayPrice: c.Price, DisplayCurrency: c.Currency, SpotsLeft: c.SpotsLeft()}
	if price, err := currency.Convert(c.Price, c.Currency, displayCurrency); err == nil {
		l.DisplayPrice = currency.Round(price, displayCurrency)
		l.DisplayCurrency = strings.ToUpper(displayCurrency)
	}
	l.FormattedPrice = currency.Format(l.DisplayPrice, l.DisplayCurrency)
	return l
}

// Manage lists camps for the admin camps screen, each annotated with its completeness.
// The quality filter needs the score, so paging happens after scoring.
func (svc *Service) Manage(ctx context.Context, filter AdminFilter) ([]Managed, int, error) {
	all, err := svc.manageAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	filter.Pagination.Clean()
	start := filter.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (svc *Service) manageAll(ctx context.Context, filter AdminFilter) ([]Managed, error) {
	qf := QueryFilter{
		Search:         core.CleanString(filter.Search),
		OrganisationID: filter.OrganisationID,
		Sort:           SortNewestFirst,
	}
	if filter.Status != "" {
		st := Status(filter.Status)
		if !st.IsValid() {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
		}
		qf.Statuses = []Status{st}
	}
	if filter.Quality != "" && !filter.Quality.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "quality", Error: "invalid quality label"})
	}

	camps, _, err := svc.repo.QueryCamps(ctx, qf)
	if err != nil {
		return nil, errors.Wrap(err, "querying camps")
	}
	managed := make([]Managed, 0, len(camps))
	for _, c := range camps {
		m := Managed{Camp: c, Completeness: Score(c)}
		if filter.Quality != "" && m.Completeness.Label != filter.Quality {
			continue
		}
		managed = append(managed, m)
	}
	return managed, nil
}

var exportHeaders = []string{
	"ID", "Name", "Slug", "Organisation", "Status", "Category", "Location", "Start Date",
	"End Date", "Price", "Currency", "Capacity", "Enrolled", "Score", "Quality", "Missing",
}

// ExportCSV writes every camp matching filter, with its completeness, as CSV.
func (svc *Service) ExportCSV(ctx context.Context, filter AdminFilter) ([]byte, error) {
	camps, err := svc.manageAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, err
	}
	for _, m := range camps {
		record := []string{
			m.ID, m.Name, m.Slug, m.OrganisationName, string(m.Status), m.Category, m.Location,
			formatDate(m.StartDate.Time, m.StartDate.Valid), formatDate(m.EndDate.Time, m.EndDate.Valid),
			strconv.FormatFloat(m.Price, 'f', -1, 64), m.Currency, strconv.Itoa(m.Capacity),
			strconv.Itoa(m.EnrolledCount), strconv.Itoa(m.Completeness.Score), string(m.Completeness.Label),
			strings.Join(m.Completeness.Missing, "; "),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatDate(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	return t.Format("2006-01-02")
}

// SetStatus approves (published), rejects (draft) or archives a camp.
func (svc *Service) SetStatus(ctx context.Context, id string, status Status) (Camp, error) {
	if !status.IsValid() {
		return Camp{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	c, err := svc.repo.SetCampStatus(ctx, id, status, svc.nowFunc())
	if err != nil {
		return Camp{}, err
	}
	svc.logger.Info(fmt.Sprintf("camp %s (%s) is now %s", c.Slug, c.ID, c.Status))
	return c, nil
}

// UploadMedia stores an image or video for a camp. Images are added to the gallery and
// become the main image when the camp has none; videos replace the camp video.
func (svc *Service) UploadMedia(ctx context.Context, id, filename, contentType string, r io.Reader) (Camp, error) {
	c, err := svc.repo.GetCamp(ctx, GetFilter{ID: id})
	if err != nil {
		return Camp{}, err
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
	}
	isImage := strings.HasPrefix(contentType, "image/")
	isVideo := strings.HasPrefix(contentType, "video/")
	if !isImage && !isVideo {
		return Camp{}, core.NewValidationError(nil, core.FieldError{Field: "file", Error: ErrUnsupportedMedia.Error()})
	}

	key := path.Join("camps", c.ID, uuid.New().String()+strings.ToLower(path.Ext(filename)))
	url, err := svc.blobs.Put(ctx, key, r, contentType)
	if err != nil {
		return Camp{}, errors.Wrap(err, "storing camp media")
	}

	if isVideo {
		c.VideoURL = url
	} else {
		c.Gallery = append(c.Gallery, url)
		if strings.TrimSpace(c.ImageURL) == "" {
			c.ImageURL = url
		}
	}
	c.UpdatedAt = svc.nowFunc()
	updated, err := svc.repo.SetCampMedia(ctx, c)
	if err != nil {
		if delErr := svc.blobs.Delete(ctx, key); delErr != nil {
			svc.logger.Error(fmt.Sprintf("camp.UploadMedia: deleting orphan %s: %v", key, delErr), delErr)
		}
		return Camp{}, err
	}
	return updated, nil
}
