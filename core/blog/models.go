package blog

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is a row of the `blog_posts` table. Author and category names are joined in by
// the repository; Tags and ReadingTime are filled in by the Service.
type Post struct {
	ID              string      `db:"id" json:"id"`
	Title           string      `db:"title" json:"title"`
	Slug            string      `db:"slug" json:"slug"`
	Excerpt         string      `db:"excerpt" json:"excerpt"`
	Content         string      `db:"content" json:"content,omitempty"`
	CoverImageURL   string      `db:"cover_image_url" json:"cover_image_url"`
	AuthorID        null.String `db:"author_id" json:"author_id"`
	AuthorName      string      `db:"author_name" json:"author_name"`
	CategoryID      null.String `db:"category_id" json:"category_id"`
	CategoryName    string      `db:"category_name" json:"category_name"`
	CategorySlug    string      `db:"category_slug" json:"category_slug"`
	Status          string      `db:"status" json:"status"`
	PublishedAt     null.Time   `db:"published_at" json:"published_at"`
	ViewCount       int         `db:"view_count" json:"view_count"`
	MetaTitle       string      `db:"meta_title" json:"meta_title"`
	MetaDescription string      `db:"meta_description" json:"meta_description"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`

	Tags        []Tag `db:"-" json:"tags"`
	ReadingTime int   `db:"-" json:"reading_time"` // minutes
}

type Author struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Slug      string `db:"slug" json:"slug"`
	Bio       string `db:"bio" json:"bio"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
	PostCount int    `db:"post_count" json:"post_count"`
}

type Category struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	PostCount   int    `db:"post_count" json:"post_count"`
}

type Tag struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Slug      string `db:"slug" json:"slug"`
	PostCount int    `db:"post_count" json:"post_count,omitempty"`
}

// PostTag links a tag to a post; used to load the tags of a page of posts.
type PostTag struct {
	PostID string `db:"post_id"`
	Tag
}

// PostFilter selects published posts. Category and Tag are slugs.
type PostFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Tag      string `query:"tag"`

	core.Pagination
}

func (pf *PostFilter) Clean() {
	pf.Search = core.CleanString(pf.Search)
	pf.Category = core.CleanString(pf.Category, true /* lower */)
	pf.Tag = core.CleanString(pf.Tag, true /* lower */)
	pf.Pagination.Clean()
}
