package group_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
	logsvc "github.com/grupka/grupka/services/logger"
	"github.com/grupka/grupka/tests"
)

var ctx = context.Background()

// failingMembershipRepo fails every membership creation.
type failingMembershipRepo struct {
	group.Repository
	deleted []string
}

func (repo *failingMembershipRepo) CreateMembership(context.Context, group.Membership) (group.Membership, error) {
	return group.Membership{}, errors.New("db down")
}

func (repo *failingMembershipRepo) DeleteGroup(ctx context.Context, id string) error {
	repo.deleted = append(repo.deleted, id)
	return repo.Repository.DeleteGroup(ctx, id)
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)

	t.Run("invalid name", func(t *testing.T) {
		_, err := env.GroupSvc.Create(ctx, ann.ID, group.NewGroup{Name: "   "})
		assert.Equal(t, core.CodeValidation, core.ErrorCodeOf(err))
	})

	t.Run("creator is the admin", func(t *testing.T) {
		grp, err := env.GroupSvc.Create(ctx, ann.ID, group.NewGroup{Name: " Sunflowers "})
		require.NoError(t, err)
		assert.Equal(t, "Sunflowers", grp.Name)
		assert.Equal(t, group.RoleAdmin, grp.Role)

		m, err := env.GroupSvc.RequireAdmin(ctx, grp.ID, ann.ID)
		require.NoError(t, err)
		assert.True(t, m.IsAdmin())
	})

	t.Run("group removed when admin membership fails", func(t *testing.T) {
		repo := &failingMembershipRepo{Repository: env.GroupRepo}
		svc := group.NewService(repo, env.UserSvc, env.Mail, logsvc.NewNopLogger(), group.Options{})

		_, err := svc.Create(ctx, ann.ID, group.NewGroup{Name: "Orphans"})
		require.Error(t, err)
		require.Len(t, repo.deleted, 1)

		_, err = env.GroupRepo.GetGroup(ctx, repo.deleted[0])
		assert.ErrorIs(t, err, group.ErrNotFound)
	})
}

func TestService_Access(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)
	bob := testutil.CreateUser(t, env.UserRepo, "Bob", "bob@example.com", testutil.Password, true)
	eve := testutil.CreateUser(t, env.UserRepo, "Eve", "eve@example.com", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")
	testutil.AddMember(t, env.GroupRepo, grp.ID, bob, group.RoleMember)

	_, err := env.GroupSvc.Get(ctx, eve.ID, grp.ID)
	assert.ErrorIs(t, err, group.ErrNotMember)
	_, err = env.GroupSvc.Get(ctx, ann.ID, "unknown")
	assert.ErrorIs(t, err, group.ErrNotMember)

	ug, err := env.GroupSvc.Get(ctx, bob.ID, grp.ID)
	require.NoError(t, err)
	assert.Equal(t, group.RoleMember, ug.Role)

	_, err = env.GroupSvc.Update(ctx, bob.ID, grp.ID, group.UpdateGroup{Name: core.StringPtr("Mine")})
	assert.ErrorIs(t, err, group.ErrNotAdmin)

	updated, err := env.GroupSvc.Update(ctx, ann.ID, grp.ID, group.UpdateGroup{Name: core.StringPtr("Tulips")})
	require.NoError(t, err)
	assert.Equal(t, "Tulips", updated.Name)

	groups, err := env.GroupSvc.QueryForUser(ctx, bob.ID, core.DefaultPage)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Tulips", groups[0].Name)

	members, err := env.GroupSvc.QueryMembers(ctx, bob.ID, grp.ID, core.DefaultPage)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	contacts, err := env.GroupSvc.AdminContacts(ctx, bob.ID, grp.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, ann.Email, contacts[0].Email)

	assert.ErrorIs(t, env.GroupSvc.Delete(ctx, bob.ID, grp.ID), group.ErrNotAdmin)
	require.NoError(t, env.GroupSvc.Delete(ctx, ann.ID, grp.ID))
	_, err = env.GroupSvc.Get(ctx, ann.ID, grp.ID)
	assert.ErrorIs(t, err, group.ErrNotMember)
}

func TestService_Members(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)
	bob := testutil.CreateUser(t, env.UserRepo, "Bob", "bob@example.com", testutil.Password, true)
	cat := testutil.CreateUser(t, env.UserRepo, "Cat", "cat@example.com", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")
	testutil.AddMember(t, env.GroupRepo, grp.ID, bob, group.RoleMember)
	testutil.AddMember(t, env.GroupRepo, grp.ID, cat, group.RoleMember)

	t.Run("last admin cannot step down", func(t *testing.T) {
		_, err := env.GroupSvc.UpdateMemberRole(ctx, ann.ID, grp.ID, ann.ID, group.UpdateMember{Role: group.RoleMember})
		assert.ErrorIs(t, err, group.ErrLastAdmin)
		assert.Equal(t, core.CodeConflict, core.ErrorCodeOf(err))
	})

	t.Run("last admin cannot leave", func(t *testing.T) {
		err := env.GroupSvc.RemoveMember(ctx, ann.ID, grp.ID, ann.ID)
		assert.ErrorIs(t, err, group.ErrLastAdmin)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := env.GroupSvc.UpdateMemberRole(ctx, ann.ID, grp.ID, bob.ID, group.UpdateMember{Role: "owner"})
		assert.Equal(t, core.CodeValidation, core.ErrorCodeOf(err))
	})

	t.Run("members cannot change roles", func(t *testing.T) {
		_, err := env.GroupSvc.UpdateMemberRole(ctx, bob.ID, grp.ID, cat.ID, group.UpdateMember{Role: group.RoleAdmin})
		assert.ErrorIs(t, err, group.ErrNotAdmin)
	})

	t.Run("members cannot remove others", func(t *testing.T) {
		assert.ErrorIs(t, env.GroupSvc.RemoveMember(ctx, bob.ID, grp.ID, cat.ID), group.ErrNotAdmin)
	})

	t.Run("unknown member", func(t *testing.T) {
		assert.ErrorIs(t, env.GroupSvc.RemoveMember(ctx, ann.ID, grp.ID, "unknown"), group.ErrMemberNotFound)
	})

	t.Run("promote then step down", func(t *testing.T) {
		m, err := env.GroupSvc.UpdateMemberRole(ctx, ann.ID, grp.ID, bob.ID, group.UpdateMember{Role: " ADMIN "})
		require.NoError(t, err)
		assert.True(t, m.IsAdmin())

		m, err = env.GroupSvc.UpdateMemberRole(ctx, ann.ID, grp.ID, ann.ID, group.UpdateMember{Role: group.RoleMember})
		require.NoError(t, err)
		assert.False(t, m.IsAdmin())
	})

	t.Run("member leaves", func(t *testing.T) {
		require.NoError(t, env.GroupSvc.RemoveMember(ctx, cat.ID, grp.ID, cat.ID))
		_, err := env.GroupSvc.RequireMember(ctx, grp.ID, cat.ID)
		assert.ErrorIs(t, err, group.ErrNotMember)
	})

	t.Run("admin removes member", func(t *testing.T) {
		require.NoError(t, env.GroupSvc.RemoveMember(ctx, bob.ID, grp.ID, ann.ID))
		members, err := env.GroupSvc.QueryMembers(ctx, bob.ID, grp.ID, core.DefaultPage)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, bob.ID, members[0].UserID)
	})
}

func TestService_Invites(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)
	bob := testutil.CreateUser(t, env.UserRepo, "Bob", "bob@example.com", testutil.Password, true)
	cat := testutil.CreateUser(t, env.UserRepo, "Cat", "cat@example.com", testutil.Password, true)
	dan := testutil.CreateUser(t, env.UserRepo, "Dan", "dan@example.com", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	group.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { group.NowFunc = time.Now })

	_, err := env.GroupSvc.CreateInvite(ctx, bob.ID, grp.ID)
	assert.ErrorIs(t, err, group.ErrNotMember)

	inv, err := env.GroupSvc.CreateInvite(ctx, ann.ID, grp.ID)
	require.NoError(t, err)
	assert.Len(t, inv.Code, env.Conf.Invite.CodeLength)
	assert.Equal(t, now.Add(env.Conf.Invite.TTL), inv.ExpiresAt)

	preview, err := env.GroupSvc.PreviewInvite(ctx, strings.ToLower(inv.Code))
	require.NoError(t, err)
	assert.Equal(t, "Sunflowers", preview.GroupName)

	ug, err := env.GroupSvc.Join(ctx, bob.ID, group.JoinGroup{Code: " " + strings.ToLower(inv.Code) + " "})
	require.NoError(t, err)
	assert.Equal(t, group.RoleMember, ug.Role)

	_, err = env.GroupSvc.Join(ctx, bob.ID, group.JoinGroup{Code: inv.Code})
	assert.ErrorIs(t, err, group.ErrAlreadyMember)

	_, err = env.GroupSvc.Join(ctx, bob.ID, group.JoinGroup{Code: "NOPE"})
	assert.ErrorIs(t, err, group.ErrInviteNotFound)

	// joining does not consume the invite
	now = inv.ExpiresAt.Add(-time.Second)
	ug, err = env.GroupSvc.Join(ctx, cat.ID, group.JoinGroup{Code: inv.Code})
	require.NoError(t, err)
	assert.Equal(t, group.RoleMember, ug.Role)
	_, err = env.GroupSvc.RequireMember(ctx, grp.ID, cat.ID)
	assert.NoError(t, err)

	// the invite expires exactly at ExpiresAt
	now = inv.ExpiresAt
	_, err = env.GroupSvc.Join(ctx, dan.ID, group.JoinGroup{Code: inv.Code})
	assert.ErrorIs(t, err, group.ErrInviteNotFound)
	_, err = env.GroupSvc.PreviewInvite(ctx, inv.Code)
	assert.ErrorIs(t, err, group.ErrInviteNotFound)

	invites, err := env.GroupSvc.QueryInvites(ctx, ann.ID, grp.ID, core.DefaultPage)
	require.NoError(t, err)
	assert.Empty(t, invites)

	n, err := env.GroupSvc.PurgeExpiredInvites(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_RevokeInvite(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")
	other := testutil.CreateGroup(t, env.GroupSvc, ann, "Tulips")

	inv, err := env.GroupSvc.CreateInvite(ctx, ann.ID, grp.ID)
	require.NoError(t, err)

	invites, err := env.GroupSvc.QueryInvites(ctx, ann.ID, grp.ID, core.DefaultPage)
	require.NoError(t, err)
	assert.Equal(t, []group.Invite{inv}, invites)

	assert.ErrorIs(t, env.GroupSvc.RevokeInvite(ctx, ann.ID, other.ID, inv.Code), group.ErrInviteNotFound)
	require.NoError(t, env.GroupSvc.RevokeInvite(ctx, ann.ID, grp.ID, inv.Code))
	_, err = env.GroupSvc.PreviewInvite(ctx, inv.Code)
	assert.ErrorIs(t, err, group.ErrInviteNotFound)
}

func TestService_SendInvites(t *testing.T) {
	env := testutil.NewEnv(t)
	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@example.com", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")

	_, err := env.GroupSvc.SendInvites(ctx, ann.ID, grp.ID, group.SendInvites{Emails: []string{"not-an-email"}})
	assert.Equal(t, core.CodeValidation, core.ErrorCodeOf(err))

	inv, err := env.GroupSvc.SendInvites(ctx, ann.ID, grp.ID, group.SendInvites{Emails: []string{"Bob@Example.com", "cat@example.com"}})
	require.NoError(t, err)

	msgs := env.Mail.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "bob@example.com", msgs[0].To[0].Address)
	assert.Equal(t, "Ann invited you to Sunflowers", msgs[0].Subject)
	assert.Contains(t, msgs[0].TextContent, "/join/"+inv.Code)
	assert.Contains(t, msgs[1].HTMLContent, inv.Code)
}
