package camp

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
)

type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusPublished     Status = "published"
	StatusArchived      Status = "archived"
)

var Statuses = []Status{StatusDraft, StatusPendingReview, StatusPublished, StatusArchived}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Camp is a row of the `camps` table. OrganisationName is joined in by the repository.
type Camp struct {
	ID                 string                 `db:"id" json:"id"`
	OrganisationID     string                 `db:"organisation_id" json:"organisation_id"`
	OrganisationName   string                 `db:"organisation_name" json:"organisation_name,omitempty"`
	Name               string                 `db:"name" json:"name"`
	Slug               string                 `db:"slug" json:"slug"`
	Description        string                 `db:"description" json:"description"`
	Category           string                 `db:"category" json:"category"`
	Location           string                 `db:"location" json:"location"`
	MinAge             int                    `db:"min_age" json:"min_age"`
	MaxAge             int                    `db:"max_age" json:"max_age"`
	StartDate          null.Time              `db:"start_date" json:"start_date"`
	EndDate            null.Time              `db:"end_date" json:"end_date"`
	Price              float64                `db:"price" json:"price"`
	Currency           string                 `db:"currency" json:"currency"`
	Capacity           int                    `db:"capacity" json:"capacity"`
	EnrolledCount      int                    `db:"enrolled_count" json:"enrolled_count"`
	Status             Status                 `db:"status" json:"status"`
	Featured           bool                   `db:"featured" json:"featured"`
	ImageURL           string                 `db:"image_url" json:"image_url"`
	VideoURL           string                 `db:"video_url" json:"video_url"`
	Gallery            core.StringList        `db:"gallery" json:"gallery"`
	Highlights         core.StringList        `db:"highlights" json:"highlights"`
	Amenities          core.StringList        `db:"amenities" json:"amenities"`
	FAQs               core.JSONColumn[[]FAQ] `db:"faqs" json:"faqs"`
	CancellationPolicy string                 `db:"cancellation_policy" json:"cancellation_policy"`
	RefundPolicy       string                 `db:"refund_policy" json:"refund_policy"`
	SafetyInfo         string                 `db:"safety_info" json:"safety_info"`
	Requirements       core.StringList        `db:"requirements" json:"requirements"`
	WhatToBring        core.StringList        `db:"what_to_bring" json:"what_to_bring"`
	CreatedAt          time.Time              `db:"created_at" json:"created_at"` // UTC
	UpdatedAt          time.Time              `db:"updated_at" json:"updated_at"` // UTC
}

// IsFull reports whether every place is taken. A zero capacity means unlimited places.
func (c Camp) IsFull() bool {
	return c.Capacity > 0 && c.EnrolledCount >= c.Capacity
}

func (c Camp) SpotsLeft() int {
	if c.Capacity <= 0 {
		return -1
	}
	if left := c.Capacity - c.EnrolledCount; left > 0 {
		return left
	}
	return 0
}

type Feedback struct {
	ID        string    `db:"id" json:"id"`
	CampID    string    `db:"camp_id" json:"camp_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Listing is a public camp with its price in the visitor's display currency.
type Listing struct {
	Camp
	DisplayPrice    float64 `json:"display_price"`
	DisplayCurrency string  `json:"display_currency"`
	FormattedPrice  string  `json:"formatted_price"`
	SpotsLeft       int     `json:"spots_left"`
}

type Detail struct {
	Listing
	Feedback      []Feedback `json:"feedback"`
	AverageRating float64    `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
}

// Managed is a camp row of the admin camps screen.
type Managed struct {
	Camp
	Completeness Completeness `json:"completeness"`
}

// Sort keys of the public listing.
const (
	SortStartDate   = "start_date"
	SortPrice       = "price"
	SortPriceDesc   = "-price"
	SortNewestFirst = "-created_at"
)

// QueryFilter selects camps. Zero values are ignored.
type QueryFilter struct {
	Search         string   `query:"search"`
	Statuses       []Status `query:"-"`
	OrganisationID string   `query:"organisation_id"`
	Category       string   `query:"category"`
	Location       string   `query:"location"`
	Age            int      `query:"age"`
	AgeFrom        int      `query:"age_from"` // camps overlapping AgeFrom..AgeTo
	AgeTo          int      `query:"age_to"`
	MinPrice       *float64 `query:"min_price"`
	MaxPrice       *float64 `query:"max_price"`
	Featured       *bool    `query:"featured"`
	Sort           string   `query:"sort"`

	core.Pagination
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	qf.Location = core.CleanString(qf.Location)
	switch qf.Sort {
	case SortStartDate, SortPrice, SortPriceDesc, SortNewestFirst:
	default:
		qf.Sort = SortStartDate
	}
	if qf.Age < 0 {
		qf.Age = 0
	}
	if qf.AgeTo < qf.AgeFrom {
		qf.AgeFrom, qf.AgeTo = qf.AgeTo, qf.AgeFrom
	}
}

// AdminFilter selects camps of the admin camps screen.
type AdminFilter struct {
	Search         string  `query:"search"`
	Status         string  `query:"status"`
	OrganisationID string  `query:"organisation_id"`
	Quality        Quality `query:"quality"`

	core.Pagination
}

// GetFilter selects a single Camp. The first non-empty field wins.
type GetFilter struct {
	ID   string
	Slug string
}
