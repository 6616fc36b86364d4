// Package blog serves the published articles of the blog.
package blog

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

const (
	wordsPerMinute = 200
	relatedLimit   = 3
)

type Repository interface {
	QueryPublishedPosts(ctx context.Context, filter PostFilter) ([]Post, int, error)
	GetPublishedPost(ctx context.Context, slug string) (Post, error)
	IncrementViewCount(ctx context.Context, id string) error
	RelatedPosts(ctx context.Context, post Post, limit int) ([]Post, error)
	PostTags(ctx context.Context, postIDs ...string) ([]PostTag, error)
	Categories(ctx context.Context) ([]Category, error)
	Tags(ctx context.Context) ([]Tag, error)
	Authors(ctx context.Context) ([]Author, error)
}

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ReadingTime estimates the minutes needed to read content, at least one.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ListPosts returns a page of published posts, newest first, and the total count.
// Contents are left out of lists.
func (svc *Service) ListPosts(ctx context.Context, filter PostFilter) ([]Post, int, error) {
	filter.Clean()
	posts, count, err := svc.repo.QueryPublishedPosts(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	if err := svc.decorate(ctx, posts); err != nil {
		return nil, 0, err
	}
	for i := range posts {
		posts[i].Content = ""
	}
	return posts, count, nil
}

// GetPost returns a published post and counts the view. Drafts are not found.
func (svc *Service) GetPost(ctx context.Context, slug string) (Post, error) {
	post, err := svc.repo.GetPublishedPost(ctx, core.CleanString(slug, true /* lower */))
	if err != nil {
		return Post{}, err
	}
	if err := svc.repo.IncrementViewCount(ctx, post.ID); err != nil {
		svc.logger.Warn(fmt.Sprintf("blog.GetPost: counting view of %s: %v", post.Slug, err))
	} else {
		post.ViewCount++
	}

	posts := []Post{post}
	if err := svc.decorate(ctx, posts); err != nil {
		return Post{}, err
	}
	return posts[0], nil
}

// Related returns up to 3 other published posts of the same category.
func (svc *Service) Related(ctx context.Context, slug string) ([]Post, error) {
	post, err := svc.repo.GetPublishedPost(ctx, core.CleanString(slug, true /* lower */))
	if err != nil {
		return nil, err
	}
	if !post.CategoryID.Valid {
		return []Post{}, nil
	}
	posts, err := svc.repo.RelatedPosts(ctx, post, relatedLimit)
	if err != nil {
		return nil, errors.Wrap(err, "querying related posts")
	}
	if err := svc.decorate(ctx, posts); err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Content = ""
	}
	return posts, nil
}

func (svc *Service) decorate(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	links, err := svc.repo.PostTags(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "querying post tags")
	}
	tags := make(map[string][]Tag)
	for _, l := range links {
		tags[l.PostID] = append(tags[l.PostID], l.Tag)
	}
	for i := range posts {
		posts[i].Tags = tags[posts[i].ID]
		if posts[i].Tags == nil {
			posts[i].Tags = []Tag{}
		}
		posts[i].ReadingTime = ReadingTime(posts[i].Content)
	}
	return nil
}

func (svc *Service) Categories(ctx context.Context) ([]Category, error) {
	return svc.repo.Categories(ctx)
}

func (svc *Service) Tags(ctx context.Context) ([]Tag, error) {
	return svc.repo.Tags(ctx)
}

func (svc *Service) Authors(ctx context.Context) ([]Author, error) {
	return svc.repo.Authors(ctx)
}
