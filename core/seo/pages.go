// Package seo builds the programmatic landing pages: one per location, category, age
// bracket and location/category pair of the published camps.
package seo

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/summercamps/core"
)

type PageType string

const (
	PageLocation         PageType = "location"
	PageCategory         PageType = "category"
	PageAge              PageType = "age"
	PageLocationCategory PageType = "location_category"
)

const metaDescriptionMax = 160

var ErrMissingParams = errors.New("missing page parameters")

// AgeBrackets are the age ranges that get a page.
var AgeBrackets = [][2]int{{5, 8}, {9, 12}, {13, 17}}

var titleCaser = cases.Title(language.English)

// Page is a row of the `programmatic_pages` table.
type Page struct {
	ID              string    `db:"id" json:"id"`
	Slug            string    `db:"slug" json:"slug"`
	PageType        PageType  `db:"page_type" json:"page_type"`
	Title           string    `db:"title" json:"title"`
	H1              string    `db:"h1" json:"h1"`
	MetaDescription string    `db:"meta_description" json:"meta_description"`
	Intro           string    `db:"intro" json:"intro"`
	Location        string    `db:"location" json:"location"`
	Category        string    `db:"category" json:"category"`
	MinAge          int       `db:"min_age" json:"min_age"`
	MaxAge          int       `db:"max_age" json:"max_age"`
	Published       bool      `db:"published" json:"published"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Params identify a page.
type Params struct {
	Type     PageType
	Location string
	Category string
	MinAge   int
	MaxAge   int
}

func (p Params) validate() error {
	var ok bool
	switch p.Type {
	case PageLocation:
		ok = strings.TrimSpace(p.Location) != ""
	case PageCategory:
		ok = strings.TrimSpace(p.Category) != ""
	case PageLocationCategory:
		ok = strings.TrimSpace(p.Location) != "" && strings.TrimSpace(p.Category) != ""
	case PageAge:
		ok = p.MinAge > 0 && p.MaxAge >= p.MinAge
	default:
		return errors.Errorf("unknown page type %q", p.Type)
	}
	if !ok {
		return errors.Wrapf(ErrMissingParams, "%s page", p.Type)
	}
	return nil
}

// Slug returns e.g. "summer-camps-in-lake-tahoe", "sailing-camps",
// "summer-camps-for-9-12-year-olds" or "sailing-camps-in-lake-tahoe".
func (p Params) Slug() string {
	switch p.Type {
	case PageLocation:
		return "summer-camps-in-" + core.Slugify(p.Location)
	case PageCategory:
		return core.Slugify(p.Category) + "-camps"
	case PageAge:
		return fmt.Sprintf("summer-camps-for-%d-%d-year-olds", p.MinAge, p.MaxAge)
	case PageLocationCategory:
		return core.Slugify(p.Category) + "-camps-in-" + core.Slugify(p.Location)
	}
	return ""
}

// Build fills in the templated texts of the page identified by p.
func Build(p Params) (Page, error) {
	if err := p.validate(); err != nil {
		return Page{}, err
	}
	location := strings.TrimSpace(p.Location)
	category := titleCaser.String(strings.TrimSpace(p.Category))

	page := Page{
		Slug:      p.Slug(),
		PageType:  p.Type,
		Location:  location,
		Category:  strings.TrimSpace(p.Category),
		MinAge:    p.MinAge,
		MaxAge:    p.MaxAge,
		Published: true,
	}

	var meta string
	switch p.Type {
	case PageLocation:
		page.Title = fmt.Sprintf("Summer Camps in %s", location)
		page.H1 = fmt.Sprintf("The Best Summer Camps in %s", location)
		meta = fmt.Sprintf("Find and compare summer camps in %s. Check dates, prices and activities, read reviews from parents and book your child's place online.", location)
		page.Intro = fmt.Sprintf("Looking for a summer camp in %s? Browse day and overnight camps run by trusted local organisers, compare what each one offers and book in a few clicks.", location)
	case PageCategory:
		page.Title = fmt.Sprintf("%s Camps", category)
		page.H1 = fmt.Sprintf("%s Summer Camps for Kids and Teens", category)
		meta = fmt.Sprintf("Discover %s summer camps for kids and teens. Compare programmes, dates and prices, read parent reviews and book online.", strings.ToLower(category))
		page.Intro = fmt.Sprintf("Whether your child is a beginner or already hooked, our %s camps mix expert coaching with plenty of summer fun.", strings.ToLower(category))
	case PageAge:
		page.Title = fmt.Sprintf("Summer Camps for %d-%d Year Olds", p.MinAge, p.MaxAge)
		page.H1 = fmt.Sprintf("Summer Camps for Kids Aged %d to %d", p.MinAge, p.MaxAge)
		meta = fmt.Sprintf("Summer camps designed for %d to %d year olds. Age-appropriate activities, qualified staff and flexible dates. Compare camps and book online.", p.MinAge, p.MaxAge)
		page.Intro = fmt.Sprintf("Every camp on this page welcomes children aged %d to %d, with activities and supervision planned for their age group.", p.MinAge, p.MaxAge)
	case PageLocationCategory:
		page.Title = fmt.Sprintf("%s Camps in %s", category, location)
		page.H1 = fmt.Sprintf("%s Summer Camps in %s", category, location)
		meta = fmt.Sprintf("Looking for %s camps in %s? Compare local %s summer camps, check availability and prices, and book online today.", strings.ToLower(category), location, strings.ToLower(category))
		page.Intro = fmt.Sprintf("Find the best %s camps in %s, from taster days to full-week programmes.", strings.ToLower(category), location)
	}
	page.MetaDescription = core.Truncate(meta, metaDescriptionMax)
	return page, nil
}
