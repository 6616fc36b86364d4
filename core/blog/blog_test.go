package blog

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
)

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1}, {1, 1}, {200, 1}, {201, 2}, {400, 2}, {1001, 6},
	}
	for _, tt := range tests {
		content := strings.TrimSpace(strings.Repeat("word\n ", tt.words))
		assert.Equal(t, tt.want, ReadingTime(content), "%d words", tt.words)
	}
}

type repoFake struct {
	posts []Post
	tags  []PostTag
}

func (r *repoFake) QueryPublishedPosts(_ context.Context, filter PostFilter) ([]Post, int, error) {
	var res []Post
	for _, p := range r.posts {
		if p.Status == StatusPublished && (filter.Category == "" || p.CategorySlug == filter.Category) {
			res = append(res, p)
		}
	}
	return res, len(res), nil
}

func (r *repoFake) GetPublishedPost(_ context.Context, slug string) (Post, error) {
	for _, p := range r.posts {
		if p.Slug == slug && p.Status == StatusPublished {
			return p, nil
		}
	}
	return Post{}, core.ErrNotFound
}

func (r *repoFake) IncrementViewCount(_ context.Context, id string) error {
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts[i].ViewCount++
		}
	}
	return nil
}

func (r *repoFake) RelatedPosts(_ context.Context, post Post, limit int) ([]Post, error) {
	var res []Post
	for _, p := range r.posts {
		if p.ID != post.ID && p.Status == StatusPublished && p.CategoryID == post.CategoryID && len(res) < limit {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *repoFake) PostTags(_ context.Context, postIDs ...string) ([]PostTag, error) {
	var res []PostTag
	for _, pt := range r.tags {
		for _, id := range postIDs {
			if pt.PostID == id {
				res = append(res, pt)
			}
		}
	}
	return res, nil
}

func (r *repoFake) Categories(context.Context) ([]Category, error) { return []Category{{Name: "Tips"}}, nil }
func (r *repoFake) Tags(context.Context) ([]Tag, error)            { return []Tag{{Name: "Packing"}}, nil }
func (r *repoFake) Authors(context.Context) ([]Author, error)      { return []Author{{Name: "Sam"}}, nil }

func fixtures() *repoFake {
	tips := null.StringFrom("cat-tips")
	long := strings.Repeat("camp ", 450)
	return &repoFake{
		posts: []Post{
			{ID: "p1", Slug: "packing-list", Status: StatusPublished, CategoryID: tips, CategorySlug: "tips", Content: long, ViewCount: 7},
			{ID: "p2", Slug: "first-time", Status: StatusPublished, CategoryID: tips, CategorySlug: "tips", Content: "short"},
			{ID: "p3", Slug: "homesick", Status: StatusPublished, CategoryID: tips, CategorySlug: "tips"},
			{ID: "p4", Slug: "budget", Status: StatusPublished, CategoryID: tips, CategorySlug: "tips"},
			{ID: "p5", Slug: "sunscreen", Status: StatusPublished, CategoryID: tips, CategorySlug: "tips"},
			{ID: "p6", Slug: "secret", Status: StatusDraft, CategoryID: tips, CategorySlug: "tips"},
			{ID: "p7", Slug: "news", Status: StatusPublished},
		},
		tags: []PostTag{
			{PostID: "p1", Tag: Tag{ID: "t1", Name: "Packing", Slug: "packing"}},
			{PostID: "p1", Tag: Tag{ID: "t2", Name: "Checklists", Slug: "checklists"}},
		},
	}
}

func TestService_ListPosts(t *testing.T) {
	svc := NewService(fixtures(), core.NopLogger())

	posts, count, err := svc.ListPosts(context.Background(), PostFilter{Category: " TIPS "})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Len(t, posts[0].Tags, 2)
	assert.Equal(t, 3, posts[0].ReadingTime)
	assert.Empty(t, posts[0].Content, "lists leave contents out")
	assert.NotNil(t, posts[1].Tags)
}

func TestService_GetPost(t *testing.T) {
	repo := fixtures()
	svc := NewService(repo, core.NopLogger())
	ctx := context.Background()

	post, err := svc.GetPost(ctx, "Packing-List")
	require.NoError(t, err)
	assert.Equal(t, 8, post.ViewCount)
	assert.Equal(t, 8, repo.posts[0].ViewCount)
	assert.NotEmpty(t, post.Content)
	assert.Equal(t, "packing", post.Tags[0].Slug)

	_, err = svc.GetPost(ctx, "secret")
	assert.True(t, errors.Is(err, core.ErrNotFound), "drafts are not found")
	assert.Zero(t, repo.posts[5].ViewCount)
}

func TestService_Related(t *testing.T) {
	svc := NewService(fixtures(), core.NopLogger())
	ctx := context.Background()

	related, err := svc.Related(ctx, "packing-list")
	require.NoError(t, err)
	require.Len(t, related, 3)
	for _, p := range related {
		assert.NotEqual(t, "p1", p.ID)
		assert.NotEqual(t, "p6", p.ID)
	}

	related, err = svc.Related(ctx, "news")
	require.NoError(t, err)
	assert.Empty(t, related, "posts without a category have no related posts")

	_, err = svc.Related(ctx, "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_Taxonomies(t *testing.T) {
	svc := NewService(fixtures(), core.NopLogger())
	ctx := context.Background()

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	authors, err := svc.Authors(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 1)
}
