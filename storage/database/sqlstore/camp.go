package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/camp"
)

var campSorts = map[string][]string{
	camp.SortStartDate:   {"c.start_date ASC", "c.name ASC"},
	camp.SortPrice:       {"c.price ASC", "c.name ASC"},
	camp.SortPriceDesc:   {"c.price DESC", "c.name ASC"},
	camp.SortNewestFirst: {"c.created_at DESC", "c.id ASC"},
}

type campRepository struct {
	*Store
}

var _ camp.Repository = (*campRepository)(nil) // interface compliance check

func NewCampRepository(s *Store) camp.Repository {
	return &campRepository{Store: s}
}

func (repo *campRepository) selectCamps(cols ...string) sq.SelectBuilder {
	return repo.sb.Select(cols...).
		From("camps c").
		LeftJoin("organisations o ON o.id = c.organisation_id")
}

func (repo *campRepository) where(filter camp.QueryFilter) sq.And {
	and := sq.And{}
	if filter.Search != "" {
		and = append(and, repo.search(filter.Search, "c.name", "c.description", "c.location", "c.category"))
	}
	if len(filter.Statuses) > 0 {
		and = append(and, sq.Eq{"c.status": filter.Statuses})
	}
	if filter.OrganisationID != "" {
		and = append(and, sq.Eq{"c.organisation_id": filter.OrganisationID})
	}
	if filter.Category != "" {
		and = append(and, lowerEq("c.category", filter.Category))
	}
	if filter.Location != "" {
		and = append(and, repo.ilike("c.location", contains(filter.Location)))
	}
	if filter.Age > 0 {
		and = append(and, sq.LtOrEq{"c.min_age": filter.Age}, sq.GtOrEq{"c.max_age": filter.Age})
	}
	if filter.AgeFrom > 0 || filter.AgeTo > 0 {
		// overlapping ranges
		if filter.AgeTo > 0 {
			and = append(and, sq.LtOrEq{"c.min_age": filter.AgeTo})
		}
		and = append(and, sq.GtOrEq{"c.max_age": filter.AgeFrom})
	}
	if filter.MinPrice != nil {
		and = append(and, sq.GtOrEq{"c.price": *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		and = append(and, sq.LtOrEq{"c.price": *filter.MaxPrice})
	}
	if filter.Featured != nil {
		and = append(and, sq.Eq{"c.featured": *filter.Featured})
	}
	return and
}

func (repo *campRepository) QueryCamps(ctx context.Context, filter camp.QueryFilter) ([]camp.Camp, int, error) {
	where := repo.where(filter)

	count, err := repo.count(ctx, repo.selectCamps("COUNT(*)").Where(where))
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting camps")
	}

	order, ok := campSorts[filter.Sort]
	if !ok {
		order = campSorts[camp.SortStartDate]
	}
	b := repo.selectCamps("c.*", "COALESCE(o.name, '') AS organisation_name").
		Where(where).
		OrderBy(order...)
	b = paginate(b, filter.Pagination)

	camps := make([]camp.Camp, 0)
	if err := repo.selectx(ctx, repo.db, &camps, b); err != nil {
		return nil, 0, errors.Wrap(err, "querying camps")
	}
	return camps, count, nil
}

func (repo *campRepository) GetCamp(ctx context.Context, filter camp.GetFilter) (camp.Camp, error) {
	b := repo.selectCamps("c.*", "COALESCE(o.name, '') AS organisation_name").Limit(1)
	switch {
	case filter.ID != "":
		b = b.Where(sq.Eq{"c.id": filter.ID})
	case filter.Slug != "":
		b = b.Where(sq.Eq{"c.slug": filter.Slug})
	default:
		return camp.Camp{}, errors.Wrap(core.ErrNotFound, "finding camp")
	}

	var c camp.Camp
	if err := repo.getx(ctx, repo.db, &c, b); err != nil {
		return camp.Camp{}, errors.Wrap(err, "finding camp")
	}
	return c, nil
}

func (repo *campRepository) ApprovedFeedback(ctx context.Context, campID string) ([]camp.Feedback, error) {
	b := repo.sb.Select("id", "camp_id", "rating", "comment", "status", "created_at").
		From("feedback").
		Where(sq.Eq{"camp_id": campID, "status": "approved"}).
		OrderBy("created_at DESC", "id ASC")
	feedback := make([]camp.Feedback, 0)
	if err := repo.selectx(ctx, repo.db, &feedback, b); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	return feedback, nil
}

func (repo *campRepository) SetCampStatus(ctx context.Context, id string, status camp.Status, updatedAt time.Time) (camp.Camp, error) {
	b := repo.sb.Update("camps").
		SetMap(map[string]interface{}{"status": status, "updated_at": updatedAt.UTC()}).
		Where(sq.Eq{"id": id})
	if err := repo.execOne(ctx, b); err != nil {
		return camp.Camp{}, errors.Wrap(err, "setting camp status")
	}
	return repo.GetCamp(ctx, camp.GetFilter{ID: id})
}

func (repo *campRepository) SetCampMedia(ctx context.Context, c camp.Camp) (camp.Camp, error) {
	b := repo.sb.Update("camps").
		SetMap(map[string]interface{}{
			"image_url":  c.ImageURL,
			"video_url":  c.VideoURL,
			"gallery":    c.Gallery,
			"updated_at": c.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": c.ID})
	if err := repo.execOne(ctx, b); err != nil {
		return camp.Camp{}, errors.Wrap(err, "setting camp media")
	}
	return repo.GetCamp(ctx, camp.GetFilter{ID: c.ID})
}

// AdjustEnrolledCount never takes the count below zero.
func (repo *campRepository) AdjustEnrolledCount(ctx context.Context, id string, delta int) error {
	b := repo.sb.Update("camps").
		Set("enrolled_count", sq.Expr("CASE WHEN enrolled_count + ? < 0 THEN 0 ELSE enrolled_count + ? END", delta, delta)).
		Where(sq.Eq{"id": id})
	return errors.Wrap(repo.execOne(ctx, b), "adjusting enrolled count")
}
