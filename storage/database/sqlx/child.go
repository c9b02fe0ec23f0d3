package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
)

const childColumns = `id, group_id, parent_id, display_name, bio, birth_date, created_at, updated_at`

type childRow struct {
	ID          string    `db:"id"`
	GroupID     string    `db:"group_id"`
	ParentID    string    `db:"parent_id"`
	DisplayName string    `db:"display_name"`
	Bio         string    `db:"bio"`
	BirthDate   null.Time `db:"birth_date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toChildRow(c child.Child) childRow {
	row := childRow{
		ID:          c.ID,
		GroupID:     c.GroupID,
		ParentID:    c.ParentID,
		DisplayName: c.DisplayName,
		Bio:         c.Bio,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.BirthDate != nil {
		row.BirthDate = null.TimeFrom(c.BirthDate.Time)
	}
	return row
}

func (r childRow) toChild() child.Child {
	c := child.Child{
		ID:          r.ID,
		GroupID:     r.GroupID,
		ParentID:    r.ParentID,
		DisplayName: r.DisplayName,
		Bio:         r.Bio,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.BirthDate.Valid {
		bd := child.NewBirthDate(r.BirthDate.Time)
		c.BirthDate = &bd
	}
	return c
}

type childRepository struct {
	db core.DB
}

var _ child.Repository = (*childRepository)(nil)

func NewChildRepository(db core.DB) child.Repository {
	return &childRepository{db: db}
}

func (repo *childRepository) CreateChild(ctx context.Context, c child.Child) (child.Child, error) {
	const q = `
		INSERT INTO children (` + childColumns + `)
		VALUES (:id, :group_id, :parent_id, :display_name, :bio, :birth_date, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, q, toChildRow(c)); err != nil {
		if pqCode(err) == uniqueViolation {
			return child.Child{}, child.ErrDuplicateName
		}
		return child.Child{}, errors.Wrap(err, "inserting child")
	}
	return c, nil
}

func (repo *childRepository) GetChild(ctx context.Context, id string) (child.Child, error) {
	var row childRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+childColumns+` FROM children WHERE id = $1`, id); err != nil {
		if isNotFound(err) {
			return child.Child{}, child.ErrNotFound
		}
		return child.Child{}, errors.Wrap(err, "selecting child")
	}
	return row.toChild(), nil
}

func (repo *childRepository) QueryChildren(ctx context.Context, groupID string, page core.Page) ([]child.Child, error) {
	q := `SELECT ` + childColumns + ` FROM children WHERE group_id = $1 ORDER BY LOWER(display_name), id LIMIT $2 OFFSET $3`

	var rows []childRow
	if err := repo.db.SelectContext(ctx, &rows, q, groupID, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting children")
	}
	children := make([]child.Child, 0, len(rows))
	for _, row := range rows {
		children = append(children, row.toChild())
	}
	return children, nil
}

func (repo *childRepository) CountChildrenInGroup(ctx context.Context, groupID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	q := `SELECT COUNT(*) FROM children WHERE group_id = $1 AND id = ANY($2::uuid[])`
	if err := repo.db.GetContext(ctx, &n, q, groupID, pq.Array(ids)); err != nil {
		if pqCode(err) == invalidTextRepresentation {
			return 0, nil
		}
		return 0, errors.Wrap(err, "counting children")
	}
	return n, nil
}

func (repo *childRepository) NameExists(ctx context.Context, groupID, name, excludeID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM children
			WHERE group_id = $1 AND LOWER(display_name) = LOWER($2) AND id::text <> $3
		)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, groupID, name, excludeID); err != nil {
		return false, errors.Wrap(err, "checking child name")
	}
	return exists, nil
}

func (repo *childRepository) UpdateChild(ctx context.Context, c child.Child) (child.Child, error) {
	const q = `
		UPDATE children SET
			display_name = :display_name,
			bio = :bio,
			birth_date = :birth_date,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, toChildRow(c))
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return child.Child{}, child.ErrDuplicateName
		}
		return child.Child{}, errors.Wrap(err, "updating child")
	}
	if err = checkAffected(res, child.ErrNotFound); err != nil {
		return child.Child{}, err
	}
	return c, nil
}

func (repo *childRepository) DeleteChild(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return child.ErrNotFound
		}
		return errors.Wrap(err, "deleting child")
	}
	return checkAffected(res, child.ErrNotFound)
}
