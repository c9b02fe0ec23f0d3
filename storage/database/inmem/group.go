package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) GetGroup(_ context.Context, id string) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		return *grp, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[grp.ID]; !ok {
		return group.Group{}, group.ErrNotFound
	}
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	repo.db.deleteGroup(id)
	return nil
}

func (repo *groupRepository) QueryUserGroups(_ context.Context, userID string, page core.Page) ([]group.UserGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]group.UserGroup, 0)
	for key, m := range repo.db.memberships {
		if key.userID != userID {
			continue
		}
		if grp, ok := repo.db.groups[key.groupID]; ok {
			groups = append(groups, group.UserGroup{Group: *grp, Role: m.Role})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Name != groups[j].Name {
			return groups[i].Name < groups[j].Name
		}
		return groups[i].ID < groups[j].ID
	})
	return paginate(groups, page), nil
}

func (repo *groupRepository) CreateMembership(_ context.Context, m group.Membership) (group.Membership, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[m.GroupID]; !ok {
		return group.Membership{}, group.ErrNotFound
	}
	key := membershipKey{groupID: m.GroupID, userID: m.UserID}
	if _, ok := repo.db.memberships[key]; ok {
		return group.Membership{}, group.ErrAlreadyMember
	}
	repo.db.memberships[key] = &m
	return m, nil
}

func (repo *groupRepository) GetMembership(_ context.Context, groupID, userID string) (group.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.memberships[membershipKey{groupID: groupID, userID: userID}]; ok {
		return *m, nil
	}
	return group.Membership{}, group.ErrMemberNotFound
}

func (repo *groupRepository) QueryMembers(_ context.Context, groupID string, page core.Page) ([]group.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]group.Member, 0)
	for key, m := range repo.db.memberships {
		if key.groupID != groupID {
			continue
		}
		member := group.Member{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if usr, ok := repo.db.users[m.UserID]; ok {
			member.DisplayName = usr.DisplayName
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return paginate(members, page), nil
}

func (repo *groupRepository) adminIDs(groupID string) []string {
	ids := make([]string, 0)
	for key, m := range repo.db.memberships {
		if key.groupID == groupID && m.IsAdmin() {
			ids = append(ids, key.userID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (repo *groupRepository) QueryAdminIDs(_ context.Context, groupID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.adminIDs(groupID), nil
}

func (repo *groupRepository) CountAdmins(_ context.Context, groupID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.adminIDs(groupID)), nil
}

func (repo *groupRepository) UpdateMembershipRole(_ context.Context, groupID, userID string, role group.Role) (group.Membership, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m, ok := repo.db.memberships[membershipKey{groupID: groupID, userID: userID}]
	if !ok {
		return group.Membership{}, group.ErrMemberNotFound
	}
	if m.IsAdmin() && role != group.RoleAdmin && len(repo.adminIDs(groupID)) <= 1 {
		return group.Membership{}, group.ErrLastAdmin
	}
	m.Role = role
	return *m, nil
}

func (repo *groupRepository) DeleteMembership(_ context.Context, groupID, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := membershipKey{groupID: groupID, userID: userID}
	m, ok := repo.db.memberships[key]
	if !ok {
		return group.ErrMemberNotFound
	}
	if m.IsAdmin() && len(repo.adminIDs(groupID)) <= 1 {
		return group.ErrLastAdmin
	}
	delete(repo.db.memberships, key)
	return nil
}

func (repo *groupRepository) CreateInvite(_ context.Context, inv group.Invite) (group.Invite, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.invites[inv.Code]; ok {
		return group.Invite{}, group.ErrInviteCodeExists
	}
	repo.db.invites[inv.Code] = &inv
	return inv, nil
}

func (repo *groupRepository) GetInvite(_ context.Context, code string) (group.Invite, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inv, ok := repo.db.invites[code]; ok {
		return *inv, nil
	}
	return group.Invite{}, group.ErrInviteNotFound
}

func (repo *groupRepository) QueryActiveInvites(_ context.Context, groupID string, now time.Time, page core.Page) ([]group.Invite, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	invites := make([]group.Invite, 0)
	for _, inv := range repo.db.invites {
		if inv.GroupID == groupID && !inv.Expired(now) {
			invites = append(invites, *inv)
		}
	}
	sort.Slice(invites, func(i, j int) bool {
		if !invites[i].CreatedAt.Equal(invites[j].CreatedAt) {
			return invites[i].CreatedAt.After(invites[j].CreatedAt)
		}
		return invites[i].Code < invites[j].Code
	})
	return paginate(invites, page), nil
}

func (repo *groupRepository) DeleteInvite(_ context.Context, groupID, code string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inv, ok := repo.db.invites[code]
	if !ok || inv.GroupID != groupID {
		return group.ErrInviteNotFound
	}
	delete(repo.db.invites, code)
	return nil
}

func (repo *groupRepository) DeleteExpiredInvites(_ context.Context, now time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for code, inv := range repo.db.invites {
		if inv.Expired(now) {
			delete(repo.db.invites, code)
			n++
		}
	}
	return n, nil
}
