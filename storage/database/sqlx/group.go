package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
)

type groupRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r groupRow) toGroup() group.Group {
	return group.Group{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type userGroupRow struct {
	groupRow
	Role string `db:"role"`
}

type membershipRow struct {
	GroupID     string    `db:"group_id"`
	UserID      string    `db:"user_id"`
	Role        string    `db:"role"`
	JoinedAt    time.Time `db:"joined_at"`
	DisplayName string    `db:"display_name"`
}

func (r membershipRow) toMembership() group.Membership {
	return group.Membership{GroupID: r.GroupID, UserID: r.UserID, Role: group.Role(r.Role), JoinedAt: r.JoinedAt.UTC()}
}

type inviteRow struct {
	Code      string    `db:"code"`
	GroupID   string    `db:"group_id"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r inviteRow) toInvite() group.Invite {
	return group.Invite{
		Code:      r.Code,
		GroupID:   r.GroupID,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
}

type groupRepository struct {
	db core.DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db core.DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	const q = `
		INSERT INTO groups (id, name, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := repo.db.ExecContext(ctx, q, grp.ID, grp.Name, grp.CreatedBy, grp.CreatedAt, grp.UpdatedAt); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo *groupRepository) GetGroup(ctx context.Context, id string) (group.Group, error) {
	var row groupRow
	q := `SELECT id, name, created_by, created_at, updated_at FROM groups WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if isNotFound(err) {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "selecting group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE groups SET name = $2, updated_at = $3 WHERE id = $1`, grp.ID, grp.Name, grp.UpdatedAt)
	if err != nil {
		if isNotFound(err) {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if err = checkAffected(res, group.ErrNotFound); err != nil {
		return group.Group{}, err
	}
	return grp, nil
}

// DeleteGroup relies on ON DELETE CASCADE to remove everything the group owns.
func (repo *groupRepository) DeleteGroup(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return group.ErrNotFound
		}
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, group.ErrNotFound)
}

func (repo *groupRepository) QueryUserGroups(ctx context.Context, userID string, page core.Page) ([]group.UserGroup, error) {
	const q = `
		SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at, m.role
		FROM groups g JOIN memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.name, g.id
		LIMIT $2 OFFSET $3`

	var rows []userGroupRow
	if err := repo.db.SelectContext(ctx, &rows, q, userID, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting user groups")
	}
	groups := make([]group.UserGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, group.UserGroup{Group: row.toGroup(), Role: group.Role(row.Role)})
	}
	return groups, nil
}

func (repo *groupRepository) CreateMembership(ctx context.Context, m group.Membership) (group.Membership, error) {
	const q = `INSERT INTO memberships (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`

	if _, err := repo.db.ExecContext(ctx, q, m.GroupID, m.UserID, string(m.Role), m.JoinedAt); err != nil {
		switch pqCode(err) {
		case uniqueViolation:
			return group.Membership{}, group.ErrAlreadyMember
		case foreignKeyViolation:
			return group.Membership{}, group.ErrNotFound
		}
		return group.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func getMembership(ctx context.Context, db core.DBExecutor, groupID, userID string) (group.Membership, error) {
	var row membershipRow
	q := `SELECT group_id, user_id, role, joined_at FROM memberships WHERE group_id = $1 AND user_id = $2`
	if err := db.GetContext(ctx, &row, q, groupID, userID); err != nil {
		if isNotFound(err) {
			return group.Membership{}, group.ErrMemberNotFound
		}
		return group.Membership{}, errors.Wrap(err, "selecting membership")
	}
	return row.toMembership(), nil
}

func (repo *groupRepository) GetMembership(ctx context.Context, groupID, userID string) (group.Membership, error) {
	return getMembership(ctx, repo.db, groupID, userID)
}

func (repo *groupRepository) QueryMembers(ctx context.Context, groupID string, page core.Page) ([]group.Member, error) {
	const q = `
		SELECT m.group_id, m.user_id, m.role, m.joined_at, u.display_name
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at, m.user_id
		LIMIT $2 OFFSET $3`

	var rows []membershipRow
	if err := repo.db.SelectContext(ctx, &rows, q, groupID, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting members")
	}
	members := make([]group.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, group.Member{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Role:        group.Role(row.Role),
			JoinedAt:    row.JoinedAt.UTC(),
		})
	}
	return members, nil
}

func queryAdminIDs(ctx context.Context, db core.DBExecutor, groupID string, lock bool) ([]string, error) {
	q := `SELECT user_id FROM memberships WHERE group_id = $1 AND role = 'admin' ORDER BY user_id`
	if lock {
		q += ` FOR UPDATE`
	}
	ids := make([]string, 0)
	if err := db.SelectContext(ctx, &ids, q, groupID); err != nil {
		return nil, errors.Wrap(err, "selecting admins")
	}
	return ids, nil
}

func (repo *groupRepository) QueryAdminIDs(ctx context.Context, groupID string) ([]string, error) {
	return queryAdminIDs(ctx, repo.db, groupID, false)
}

func (repo *groupRepository) CountAdmins(ctx context.Context, groupID string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM memberships WHERE group_id = $1 AND role = 'admin'`
	if err := repo.db.GetContext(ctx, &n, q, groupID); err != nil {
		return 0, errors.Wrap(err, "counting admins")
	}
	return n, nil
}

// lockedMembership locks the admin rows of the group before reading the membership,
// so that concurrent demotions cannot leave the group without an admin.
func lockedMembership(ctx context.Context, tx core.DBExecutor, groupID, userID string) (group.Membership, bool, error) {
	admins, err := queryAdminIDs(ctx, tx, groupID, true)
	if err != nil {
		return group.Membership{}, false, err
	}
	m, err := getMembership(ctx, tx, groupID, userID)
	if err != nil {
		return group.Membership{}, false, err
	}
	return m, m.IsAdmin() && len(admins) <= 1, nil
}

func (repo *groupRepository) UpdateMembershipRole(ctx context.Context, groupID, userID string, role group.Role) (group.Membership, error) {
	var m group.Membership
	err := withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var lastAdmin bool
		var err error
		if m, lastAdmin, err = lockedMembership(ctx, tx, groupID, userID); err != nil {
			return err
		}
		if lastAdmin && role != group.RoleAdmin {
			return group.ErrLastAdmin
		}
		q := `UPDATE memberships SET role = $3 WHERE group_id = $1 AND user_id = $2`
		if _, err = tx.ExecContext(ctx, q, groupID, userID, string(role)); err != nil {
			return errors.Wrap(err, "updating membership")
		}
		m.Role = role
		return nil
	})
	if err != nil {
		return group.Membership{}, err
	}
	return m, nil
}

func (repo *groupRepository) DeleteMembership(ctx context.Context, groupID, userID string) error {
	return withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		_, lastAdmin, err := lockedMembership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if lastAdmin {
			return group.ErrLastAdmin
		}
		q := `DELETE FROM memberships WHERE group_id = $1 AND user_id = $2`
		if _, err = tx.ExecContext(ctx, q, groupID, userID); err != nil {
			return errors.Wrap(err, "deleting membership")
		}
		return nil
	})
}

func (repo *groupRepository) CreateInvite(ctx context.Context, inv group.Invite) (group.Invite, error) {
	const q = `
		INSERT INTO group_invites (code, group_id, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := repo.db.ExecContext(ctx, q, inv.Code, inv.GroupID, inv.CreatedBy, inv.CreatedAt, inv.ExpiresAt); err != nil {
		switch pqCode(err) {
		case uniqueViolation:
			return group.Invite{}, group.ErrInviteCodeExists
		case foreignKeyViolation:
			return group.Invite{}, group.ErrNotFound
		}
		return group.Invite{}, errors.Wrap(err, "inserting invite")
	}
	return inv, nil
}

func (repo *groupRepository) GetInvite(ctx context.Context, code string) (group.Invite, error) {
	var row inviteRow
	q := `SELECT code, group_id, created_by, created_at, expires_at FROM group_invites WHERE code = $1`
	if err := repo.db.GetContext(ctx, &row, q, code); err != nil {
		if isNotFound(err) {
			return group.Invite{}, group.ErrInviteNotFound
		}
		return group.Invite{}, errors.Wrap(err, "selecting invite")
	}
	return row.toInvite(), nil
}

func (repo *groupRepository) QueryActiveInvites(ctx context.Context, groupID string, now time.Time, page core.Page) ([]group.Invite, error) {
	const q = `
		SELECT code, group_id, created_by, created_at, expires_at
		FROM group_invites
		WHERE group_id = $1 AND expires_at > $2
		ORDER BY created_at DESC, code
		LIMIT $3 OFFSET $4`

	var rows []inviteRow
	if err := repo.db.SelectContext(ctx, &rows, q, groupID, now, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting invites")
	}
	invites := make([]group.Invite, 0, len(rows))
	for _, row := range rows {
		invites = append(invites, row.toInvite())
	}
	return invites, nil
}

func (repo *groupRepository) DeleteInvite(ctx context.Context, groupID, code string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM group_invites WHERE group_id = $1 AND code = $2`, groupID, code)
	if err != nil {
		if isNotFound(err) {
			return group.ErrInviteNotFound
		}
		return errors.Wrap(err, "deleting invite")
	}
	return checkAffected(res, group.ErrInviteNotFound)
}

func (repo *groupRepository) DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM group_invites WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired invites")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting expired invites")
}
