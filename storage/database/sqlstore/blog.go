package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/blog"
)

const postPublished = "published"

type blogRepository struct {
	*Store
}

var _ blog.Repository = (*blogRepository)(nil) // interface compliance check

func NewBlogRepository(s *Store) blog.Repository {
	return &blogRepository{Store: s}
}

func (repo *blogRepository) selectPosts(cols ...string) sq.SelectBuilder {
	return repo.sb.Select(cols...).
		From("blog_posts p").
		LeftJoin("blog_authors a ON a.id = p.author_id").
		LeftJoin("blog_categories c ON c.id = p.category_id").
		Where(sq.Eq{"p.status": postPublished})
}

var postColumns = []string{
	"p.*",
	"COALESCE(a.name, '') AS author_name",
	"COALESCE(c.name, '') AS category_name",
	"COALESCE(c.slug, '') AS category_slug",
}

func (repo *blogRepository) QueryPublishedPosts(ctx context.Context, filter blog.PostFilter) ([]blog.Post, int, error) {
	where := sq.And{}
	if filter.Search != "" {
		where = append(where, repo.search(filter.Search, "p.title", "p.excerpt", "p.content"))
	}
	if filter.Category != "" {
		where = append(where, sq.Eq{"c.slug": filter.Category})
	}
	if filter.Tag != "" {
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM blog_post_tags pt JOIN blog_tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND t.slug = ?)",
			filter.Tag,
		))
	}

	count, err := repo.count(ctx, repo.selectPosts("COUNT(*)").Where(where))
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting posts")
	}

	b := repo.selectPosts(postColumns...).Where(where).OrderBy("p.published_at DESC", "p.created_at DESC")
	b = paginate(b, filter.Pagination)
	posts := make([]blog.Post, 0)
	if err := repo.selectx(ctx, repo.db, &posts, b); err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	return posts, count, nil
}

func (repo *blogRepository) GetPublishedPost(ctx context.Context, slug string) (blog.Post, error) {
	var post blog.Post
	if err := repo.getx(ctx, repo.db, &post, repo.selectPosts(postColumns...).Where(sq.Eq{"p.slug": slug})); err != nil {
		return blog.Post{}, errors.Wrap(err, "finding post")
	}
	return post, nil
}

func (repo *blogRepository) IncrementViewCount(ctx context.Context, id string) error {
	b := repo.sb.Update("blog_posts").Set("view_count", sq.Expr("view_count + 1")).Where(sq.Eq{"id": id})
	return errors.Wrap(repo.execOne(ctx, b), "incrementing view count")
}

func (repo *blogRepository) RelatedPosts(ctx context.Context, post blog.Post, limit int) ([]blog.Post, error) {
	b := repo.selectPosts(postColumns...).
		Where(sq.Eq{"p.category_id": post.CategoryID.String}).
		Where(sq.NotEq{"p.id": post.ID}).
		OrderBy("p.published_at DESC", "p.created_at DESC").
		Limit(uint64(limit))
	posts := make([]blog.Post, 0)
	if err := repo.selectx(ctx, repo.db, &posts, b); err != nil {
		return nil, errors.Wrap(err, "querying related posts")
	}
	return posts, nil
}

func (repo *blogRepository) PostTags(ctx context.Context, postIDs ...string) ([]blog.PostTag, error) {
	if len(postIDs) == 0 {
		return []blog.PostTag{}, nil
	}
	b := repo.sb.Select("pt.post_id", "t.id", "t.name", "t.slug").
		From("blog_post_tags pt").
		Join("blog_tags t ON t.id = pt.tag_id").
		Where(sq.Eq{"pt.post_id": postIDs}).
		OrderBy("t.name")
	links := make([]blog.PostTag, 0)
	if err := repo.selectx(ctx, repo.db, &links, b); err != nil {
		return nil, errors.Wrap(err, "querying post tags")
	}
	return links, nil
}

// publishedCount counts the published posts whose fk column points at the outer row x.
func publishedCount(fk string) string {
	return "(SELECT COUNT(*) FROM blog_posts p WHERE p." + fk + " = x.id AND p.status = '" + postPublished + "') AS post_count"
}

func (repo *blogRepository) Categories(ctx context.Context) ([]blog.Category, error) {
	b := repo.sb.Select("x.id", "x.name", "x.slug", "x.description", publishedCount("category_id")).
		From("blog_categories x").
		OrderBy("x.name")
	categories := make([]blog.Category, 0)
	if err := repo.selectx(ctx, repo.db, &categories, b); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	return categories, nil
}

func (repo *blogRepository) Tags(ctx context.Context) ([]blog.Tag, error) {
	b := repo.sb.
		Select(
			"x.id", "x.name", "x.slug",
			"(SELECT COUNT(*) FROM blog_post_tags pt JOIN blog_posts p ON p.id = pt.post_id "+
				"WHERE pt.tag_id = x.id AND p.status = '"+postPublished+"') AS post_count",
		).
		From("blog_tags x").
		OrderBy("x.name")
	tags := make([]blog.Tag, 0)
	if err := repo.selectx(ctx, repo.db, &tags, b); err != nil {
		return nil, errors.Wrap(err, "querying tags")
	}
	return tags, nil
}

func (repo *blogRepository) Authors(ctx context.Context) ([]blog.Author, error) {
	b := repo.sb.Select("x.id", "x.name", "x.slug", "x.bio", "x.avatar_url", publishedCount("author_id")).
		From("blog_authors x").
		OrderBy("x.name")
	authors := make([]blog.Author, 0)
	if err := repo.selectx(ctx, repo.db, &authors, b); err != nil {
		return nil, errors.Wrap(err, "querying authors")
	}
	return authors, nil
}
