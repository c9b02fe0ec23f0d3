package group

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = core.NewNotFoundError("group not found")
	ErrNotMember        = core.NewForbiddenError("you are not a member of this group")
	ErrNotAdmin         = core.NewForbiddenError("only group admins can do this")
	ErrMemberNotFound   = core.NewNotFoundError("member not found")
	ErrLastAdmin        = core.NewConflictError("a group must keep at least one admin")
	ErrAlreadyMember    = core.NewConflictError("you are already a member of this group")
	ErrInviteNotFound   = core.NewNotFoundError("invite not found or expired")
	ErrInviteCodeExists = errors.New("invite code already exists")

	inviteCodeAttempts = 5
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroup(ctx context.Context, id string) error
		QueryUserGroups(ctx context.Context, userID string, page core.Page) ([]UserGroup, error)

		CreateMembership(ctx context.Context, m Membership) (Membership, error)
		GetMembership(ctx context.Context, groupID, userID string) (Membership, error)
		QueryMembers(ctx context.Context, groupID string, page core.Page) ([]Member, error)
		QueryAdminIDs(ctx context.Context, groupID string) ([]string, error)
		CountAdmins(ctx context.Context, groupID string) (int, error)
		UpdateMembershipRole(ctx context.Context, groupID, userID string, role Role) (Membership, error)
		// DeleteMembership returns ErrLastAdmin instead of removing the only admin of a group.
		DeleteMembership(ctx context.Context, groupID, userID string) error

		CreateInvite(ctx context.Context, inv Invite) (Invite, error)
		GetInvite(ctx context.Context, code string) (Invite, error)
		QueryActiveInvites(ctx context.Context, groupID string, now time.Time, page core.Page) ([]Invite, error)
		DeleteInvite(ctx context.Context, groupID, code string) error
		DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error)
	}

	Service interface {
		RequireMember(ctx context.Context, groupID, userID string) (Membership, error)
		RequireAdmin(ctx context.Context, groupID, userID string) (Membership, error)

		Create(ctx context.Context, actorID string, ng NewGroup) (UserGroup, error)
		Get(ctx context.Context, actorID, groupID string) (UserGroup, error)
		QueryForUser(ctx context.Context, actorID string, page core.Page) ([]UserGroup, error)
		Update(ctx context.Context, actorID, groupID string, ug UpdateGroup) (Group, error)
		Delete(ctx context.Context, actorID, groupID string) error

		QueryMembers(ctx context.Context, actorID, groupID string, page core.Page) ([]Member, error)
		UpdateMemberRole(ctx context.Context, actorID, groupID, userID string, um UpdateMember) (Membership, error)
		RemoveMember(ctx context.Context, actorID, groupID, userID string) error
		AdminContacts(ctx context.Context, actorID, groupID string) ([]user.Contact, error)

		CreateInvite(ctx context.Context, actorID, groupID string) (Invite, error)
		SendInvites(ctx context.Context, actorID, groupID string, si SendInvites) (Invite, error)
		QueryInvites(ctx context.Context, actorID, groupID string, page core.Page) ([]Invite, error)
		RevokeInvite(ctx context.Context, actorID, groupID, code string) error
		PreviewInvite(ctx context.Context, code string) (InvitePreview, error)
		Join(ctx context.Context, actorID string, jg JoinGroup) (UserGroup, error)
		PurgeExpiredInvites(ctx context.Context) (int64, error)
	}

	Options struct {
		InviteTTL        time.Duration
		InviteCodeLength int
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		logger  core.Logger
		opts    Options
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger, opts Options) Service {
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 60 * time.Minute
	}
	if opts.InviteCodeLength <= 0 {
		opts.InviteCodeLength = 8
	}
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
		opts:    opts,
	}
}

// RequireMember returns the caller's Membership, or ErrNotMember.
// Unknown groups are reported the same way so that group ids cannot be probed.
func (svc *service) RequireMember(ctx context.Context, groupID, userID string) (Membership, error) {
	m, err := svc.repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return Membership{}, ErrNotMember
		}
		return Membership{}, errors.Wrap(err, "getting membership")
	}
	return m, nil
}

func (svc *service) RequireAdmin(ctx context.Context, groupID, userID string) (Membership, error) {
	m, err := svc.RequireMember(ctx, groupID, userID)
	if err != nil {
		return Membership{}, err
	}
	if !m.IsAdmin() {
		return Membership{}, ErrNotAdmin
	}
	return m, nil
}

// Create creates a group with the caller as its only admin.
// If the admin membership cannot be created, the group is deleted again.
func (svc *service) Create(ctx context.Context, actorID string, ng NewGroup) (UserGroup, error) {
	if err := ng.Validate(); err != nil {
		return UserGroup{}, err
	}

	now := NowFunc().UTC()
	grp, err := svc.repo.CreateGroup(ctx, Group{
		ID:        uuid.NewString(),
		Name:      ng.Name,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return UserGroup{}, errors.Wrap(err, "creating group")
	}

	m, err := svc.repo.CreateMembership(ctx, Membership{
		GroupID:  grp.ID,
		UserID:   actorID,
		Role:     RoleAdmin,
		JoinedAt: now,
	})
	if err != nil {
		if delErr := svc.repo.DeleteGroup(ctx, grp.ID); delErr != nil {
			svc.logger.Error("deleting orphan group", errors.Wrapf(delErr, "group %s", grp.ID))
		}
		return UserGroup{}, errors.Wrap(err, "creating admin membership")
	}
	return UserGroup{Group: grp, Role: m.Role}, nil
}

func (svc *service) Get(ctx context.Context, actorID, groupID string) (UserGroup, error) {
	m, err := svc.RequireMember(ctx, groupID, actorID)
	if err != nil {
		return UserGroup{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return UserGroup{}, err
	}
	return UserGroup{Group: grp, Role: m.Role}, nil
}

func (svc *service) QueryForUser(ctx context.Context, actorID string, page core.Page) ([]UserGroup, error) {
	return svc.repo.QueryUserGroups(ctx, actorID, page)
}

func (svc *service) Update(ctx context.Context, actorID, groupID string, ug UpdateGroup) (Group, error) {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return Group{}, err
	}
	if err := ug.Validate(); err != nil {
		return Group{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return Group{}, err
	}
	if ug.Name != nil {
		grp.Name = *ug.Name
	}
	grp.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateGroup(ctx, grp)
}

func (svc *service) Delete(ctx context.Context, actorID, groupID string) error {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	return svc.repo.DeleteGroup(ctx, groupID)
}

func (svc *service) QueryMembers(ctx context.Context, actorID, groupID string, page core.Page) ([]Member, error) {
	if _, err := svc.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMembers(ctx, groupID, page)
}

// isLastAdmin reports whether m is the only admin membership of its group.
func (svc *service) isLastAdmin(ctx context.Context, m Membership) (bool, error) {
	if !m.IsAdmin() {
		return false, nil
	}
	count, err := svc.repo.CountAdmins(ctx, m.GroupID)
	if err != nil {
		return false, errors.Wrap(err, "counting admins")
	}
	return count <= 1, nil
}

func (svc *service) UpdateMemberRole(ctx context.Context, actorID, groupID, userID string, um UpdateMember) (Membership, error) {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return Membership{}, err
	}
	if err := um.Validate(); err != nil {
		return Membership{}, err
	}
	target, err := svc.repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return Membership{}, err
	}
	if target.Role == um.Role {
		return target, nil
	}
	if um.Role != RoleAdmin {
		last, err := svc.isLastAdmin(ctx, target)
		if err != nil {
			return Membership{}, err
		}
		if last {
			return Membership{}, ErrLastAdmin
		}
	}
	return svc.repo.UpdateMembershipRole(ctx, groupID, userID, um.Role)
}

// RemoveMember removes userID from the group. Admins may remove anyone, members may only leave.
func (svc *service) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	if actorID == userID {
		if _, err := svc.RequireMember(ctx, groupID, actorID); err != nil {
			return err
		}
	} else if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}

	target, err := svc.repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	last, err := svc.isLastAdmin(ctx, target)
	if err != nil {
		return err
	}
	if last {
		return ErrLastAdmin
	}
	return svc.repo.DeleteMembership(ctx, groupID, userID)
}

func (svc *service) AdminContacts(ctx context.Context, actorID, groupID string) ([]user.Contact, error) {
	if _, err := svc.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.QueryAdminIDs(ctx, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying admin ids")
	}
	return svc.usrSvc.QueryContacts(ctx, ids...)
}

func (svc *service) CreateInvite(ctx context.Context, actorID, groupID string) (Invite, error) {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return Invite{}, err
	}
	return svc.createInvite(ctx, actorID, groupID)
}

func (svc *service) createInvite(ctx context.Context, actorID, groupID string) (Invite, error) {
	now := NowFunc().UTC()
	for attempt := 1; ; attempt++ {
		code, err := generateInviteCode(svc.opts.InviteCodeLength)
		if err != nil {
			return Invite{}, err
		}
		inv, err := svc.repo.CreateInvite(ctx, Invite{
			Code:      code,
			GroupID:   groupID,
			CreatedBy: actorID,
			CreatedAt: now,
			ExpiresAt: now.Add(svc.opts.InviteTTL),
		})
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, ErrInviteCodeExists) || attempt >= inviteCodeAttempts {
			return Invite{}, errors.Wrap(err, "creating invite")
		}
	}
}

// SendInvites creates one invite and mails its code to every address.
func (svc *service) SendInvites(ctx context.Context, actorID, groupID string, si SendInvites) (Invite, error) {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return Invite{}, err
	}
	if err := si.Validate(); err != nil {
		return Invite{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return Invite{}, err
	}
	inviter, err := svc.usrSvc.GetByID(ctx, actorID)
	if err != nil {
		return Invite{}, errors.Wrap(err, "getting inviter")
	}
	inv, err := svc.createInvite(ctx, actorID, groupID)
	if err != nil {
		return Invite{}, err
	}

	data := map[string]interface{}{
		"InviterName": inviter.DisplayName,
		"GroupName":   grp.Name,
		"Code":        inv.Code,
		"ExpiresAt":   inv.ExpiresAt,
	}
	messages := make([]*core.EmailMessage, 0, len(si.Emails))
	for _, email := range si.Emails {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Address: email}},
			Subject:      fmt.Sprintf("%s invited you to %s", inviter.DisplayName, grp.Name),
			TemplateName: "invite",
			TemplateData: data,
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return inv, nil
}

func (svc *service) QueryInvites(ctx context.Context, actorID, groupID string, page core.Page) ([]Invite, error) {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryActiveInvites(ctx, groupID, NowFunc().UTC(), page)
}

func (svc *service) RevokeInvite(ctx context.Context, actorID, groupID, code string) error {
	if _, err := svc.RequireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	return svc.repo.DeleteInvite(ctx, groupID, normalizeCode(code))
}

// activeInvite returns the Invite matching code if it has not expired yet.
func (svc *service) activeInvite(ctx context.Context, code string) (Invite, error) {
	code = normalizeCode(code)
	if code == "" {
		return Invite{}, ErrInviteNotFound
	}
	inv, err := svc.repo.GetInvite(ctx, code)
	if err != nil {
		return Invite{}, err
	}
	if inv.Expired(NowFunc()) {
		return Invite{}, ErrInviteNotFound
	}
	return inv, nil
}

func (svc *service) PreviewInvite(ctx context.Context, code string) (InvitePreview, error) {
	inv, err := svc.activeInvite(ctx, code)
	if err != nil {
		return InvitePreview{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, inv.GroupID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return InvitePreview{}, ErrInviteNotFound
		}
		return InvitePreview{}, err
	}
	return InvitePreview{Code: inv.Code, GroupID: grp.ID, GroupName: grp.Name, ExpiresAt: inv.ExpiresAt}, nil
}

// Join adds the caller to the group of a valid invite. The invite stays usable until it expires.
func (svc *service) Join(ctx context.Context, actorID string, jg JoinGroup) (UserGroup, error) {
	if err := jg.Validate(); err != nil {
		return UserGroup{}, err
	}
	inv, err := svc.activeInvite(ctx, jg.Code)
	if err != nil {
		return UserGroup{}, err
	}

	if _, err = svc.repo.GetMembership(ctx, inv.GroupID, actorID); err == nil {
		return UserGroup{}, ErrAlreadyMember
	} else if !errors.Is(err, ErrMemberNotFound) {
		return UserGroup{}, errors.Wrap(err, "getting membership")
	}

	m, err := svc.repo.CreateMembership(ctx, Membership{
		GroupID:  inv.GroupID,
		UserID:   actorID,
		Role:     RoleMember,
		JoinedAt: NowFunc().UTC(),
	})
	if err != nil {
		return UserGroup{}, err
	}
	grp, err := svc.repo.GetGroup(ctx, inv.GroupID)
	if err != nil {
		return UserGroup{}, err
	}
	return UserGroup{Group: grp, Role: m.Role}, nil
}

func (svc *service) PurgeExpiredInvites(ctx context.Context) (int64, error) {
	n, err := svc.repo.DeleteExpiredInvites(ctx, NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired invites")
	}
	return n, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}
