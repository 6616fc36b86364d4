package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
)

const profilesTable = "profiles"

var userOrderFields = map[string]bool{
	"id": true, "name": true, "username": true, "email": true,
	"is_active": true, "created_at": true, "updated_at": true, "last_login": true,
}

// userRow stores empty usernames and emails as NULL so they stay unique.
type userRow struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	Username       null.String     `db:"username"`
	Email          null.String     `db:"email"`
	IsActive       bool            `db:"is_active"`
	Roles          core.StringList `db:"roles"`
	OrganisationID null.String     `db:"organisation_id"`
	PasswordHash   string          `db:"password_hash"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	LastLogin      null.Time       `db:"last_login"`
}

type userRepository struct {
	*Store
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(s *Store) user.Repository {
	return &userRepository{Store: s}
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = core.StringList{}
	}
	return userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Username:       null.NewString(usr.Username, usr.Username != ""),
		Email:          null.NewString(usr.Email, usr.Email != ""),
		IsActive:       usr.IsActive,
		Roles:          roles,
		OrganisationID: usr.OrganisationID,
		PasswordHash:   string(usr.PasswordHash),
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      usr.LastLogin,
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:             r.ID,
		Name:           r.Name,
		Username:       r.Username.String,
		Email:          r.Email.String,
		IsActive:       r.IsActive,
		Roles:          r.Roles,
		OrganisationID: r.OrganisationID,
		PasswordHash:   []byte(r.PasswordHash),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
		LastLogin:      r.LastLogin,
	}
}

// trapNotFound maps a missing row to user.ErrNotFound
func trapNotFound(err error, msg string) error {
	if errors.Cause(err) == core.ErrNotFound {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(col, value string, errExists error) error {
		if value == "" {
			return nil
		}
		b := repo.sb.Select("COUNT(*)").From(profilesTable).Where(sq.Eq{col: value})
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			b = b.Where(sq.NotEq{"id": ids})
		}
		n, err := repo.count(ctx, b)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if n > 0 {
			return errExists
		}
		return nil
	}
	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	b := repo.sb.Insert(profilesTable).SetMap(map[string]interface{}{
		"id":              row.ID,
		"name":            row.Name,
		"username":        row.Username,
		"email":           row.Email,
		"is_active":       row.IsActive,
		"roles":           row.Roles,
		"organisation_id": row.OrganisationID,
		"password_hash":   row.PasswordHash,
		"created_at":      row.CreatedAt,
		"updated_at":      row.UpdatedAt,
		"last_login":      row.LastLogin,
	})
	if _, err := repo.exec(ctx, repo.db, b); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	b := repo.sb.Select("*").From(profilesTable)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			b = b.Where(repo.search(filter.Search, "name", "username", "email"))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			or := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				or = append(or, sq.Like{"roles": contains(`"` + role)})
			}
			b = b.Where(or)
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			b = b.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			b = b.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	for _, ord := range ordering {
		if userOrderFields[ord.Field] {
			b = b.OrderBy(ord.String())
		}
	}
	b = b.OrderBy("created_at DESC", "id ASC")

	var rows []userRow
	if err := repo.selectx(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := repo.sb.Select("*").From(profilesTable).Limit(1)
	switch {
	case filter.ID != "":
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		b = b.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.getx(ctx, repo.db, &row, b); err != nil {
		return user.User{}, trapNotFound(err, "finding user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	values := map[string]interface{}{
		"name":       usr.Name,
		"username":   null.NewString(usr.Username, usr.Username != ""),
		"email":      null.NewString(usr.Email, usr.Email != ""),
		"updated_at": usr.UpdatedAt.UTC(),
	}
	if usr.Roles != nil {
		values["roles"] = usr.Roles
	}
	if usr.PasswordHash != nil {
		values["password_hash"] = string(usr.PasswordHash)
	}
	if isActive != nil {
		values["is_active"] = *isActive
	}

	err := repo.execOne(ctx, repo.sb.Update(profilesTable).SetMap(values).Where(sq.Eq{"id": usr.ID}))
	if err != nil {
		return user.User{}, trapNotFound(err, "updating user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	b := repo.sb.Update(profilesTable).Set("last_login", usr.LastLogin).Where(sq.Eq{"id": usr.ID})
	if err := repo.execOne(ctx, b); err != nil {
		return user.User{}, trapNotFound(err, "setting last login")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.exec(ctx, repo.db, repo.sb.Delete(profilesTable).Where(sq.Eq{"id": ids})); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
