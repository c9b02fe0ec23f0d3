package child

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = core.NewNotFoundError("child not found")
	ErrNotParent      = core.NewForbiddenError("only the child's parent can do this")
	ErrDuplicateName  = core.NewConflictError("a child with this name already exists in the group")
	ErrBioUnavailable = core.NewError(core.CodeServiceUnavailable, "bio generation is currently unavailable")
)

type (
	Repository interface {
		// CreateChild returns ErrDuplicateName when the group already has a child with the same name.
		CreateChild(ctx context.Context, c Child) (Child, error)
		GetChild(ctx context.Context, id string) (Child, error)
		QueryChildren(ctx context.Context, groupID string, page core.Page) ([]Child, error)
		// CountChildrenInGroup counts how many of ids are children of the group.
		CountChildrenInGroup(ctx context.Context, groupID string, ids ...string) (int, error)
		// NameExists does a case-insensitive match on display names of the group, ignoring excludeID.
		NameExists(ctx context.Context, groupID, name, excludeID string) (bool, error)
		UpdateChild(ctx context.Context, c Child) (Child, error)
		DeleteChild(ctx context.Context, id string) error
	}

	// BioGenerator writes a short child bio from a prompt.
	BioGenerator interface {
		GenerateBio(ctx context.Context, prompt string) (string, error)
	}

	Service interface {
		Create(ctx context.Context, actorID, groupID string, nc NewChild) (Child, error)
		Query(ctx context.Context, actorID, groupID string, page core.Page) ([]Child, error)
		Get(ctx context.Context, actorID, childID string) (Child, error)
		Update(ctx context.Context, actorID, childID string, uc UpdateChild) (Child, error)
		Delete(ctx context.Context, actorID, childID string) error
		GenerateBio(ctx context.Context, actorID, childID string, br BioRequest) (Bio, error)
		AllInGroup(ctx context.Context, groupID string, ids ...string) (bool, error)
	}

	service struct {
		repo   Repository
		grpSvc group.Service
		bioGen BioGenerator
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, grpSvc group.Service, bioGen BioGenerator, logger core.Logger) Service {
	return &service{repo: repo, grpSvc: grpSvc, bioGen: bioGen, logger: logger}
}

func duplicateNameError() error {
	return ErrDuplicateName.WithField("displayName", ErrDuplicateName.Message)
}

func (svc *service) checkNameUniqueness(ctx context.Context, groupID, name, excludeID string) error {
	exists, err := svc.repo.NameExists(ctx, groupID, name, excludeID)
	if err != nil {
		return errors.Wrap(err, "checking name uniqueness")
	}
	if exists {
		return duplicateNameError()
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actorID, groupID string, nc NewChild) (Child, error) {
	if _, err := svc.grpSvc.RequireMember(ctx, groupID, actorID); err != nil {
		return Child{}, err
	}
	if err := nc.Validate(); err != nil {
		return Child{}, err
	}
	if err := svc.checkNameUniqueness(ctx, groupID, nc.DisplayName, ""); err != nil {
		return Child{}, err
	}

	now := NowFunc().UTC()
	c := Child{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		ParentID:    actorID,
		DisplayName: nc.DisplayName,
		Bio:         nc.Bio,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nc.BirthDate != "" {
		bd, err := ParseBirthDate(nc.BirthDate)
		if err != nil {
			return Child{}, err
		}
		c.BirthDate = &bd
	}

	c, err := svc.repo.CreateChild(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Child{}, duplicateNameError()
		}
		return Child{}, errors.Wrap(err, "creating child")
	}
	return c, nil
}

func (svc *service) Query(ctx context.Context, actorID, groupID string, page core.Page) ([]Child, error) {
	if _, err := svc.grpSvc.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryChildren(ctx, groupID, page)
}

func (svc *service) Get(ctx context.Context, actorID, childID string) (Child, error) {
	c, err := svc.repo.GetChild(ctx, childID)
	if err != nil {
		return Child{}, err
	}
	if _, err = svc.grpSvc.RequireMember(ctx, c.GroupID, actorID); err != nil {
		return Child{}, err
	}
	return c, nil
}

// getAsParent returns the child if actorID is its parent and still a member of its group.
func (svc *service) getAsParent(ctx context.Context, actorID, childID string) (Child, error) {
	c, err := svc.Get(ctx, actorID, childID)
	if err != nil {
		return Child{}, err
	}
	if c.ParentID != actorID {
		return Child{}, ErrNotParent
	}
	return c, nil
}

func (svc *service) Update(ctx context.Context, actorID, childID string, uc UpdateChild) (Child, error) {
	c, err := svc.getAsParent(ctx, actorID, childID)
	if err != nil {
		return Child{}, err
	}
	if err = uc.Validate(); err != nil {
		return Child{}, err
	}

	if uc.DisplayName != nil && *uc.DisplayName != c.DisplayName {
		if err = svc.checkNameUniqueness(ctx, c.GroupID, *uc.DisplayName, c.ID); err != nil {
			return Child{}, err
		}
		c.DisplayName = *uc.DisplayName
	}
	if uc.Bio != nil {
		c.Bio = *uc.Bio
	}
	if uc.BirthDate != nil {
		if *uc.BirthDate == "" {
			c.BirthDate = nil
		} else {
			bd, err := ParseBirthDate(*uc.BirthDate)
			if err != nil {
				return Child{}, err
			}
			c.BirthDate = &bd
		}
	}
	c.UpdatedAt = NowFunc().UTC()

	c, err = svc.repo.UpdateChild(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Child{}, duplicateNameError()
		}
		return Child{}, errors.Wrap(err, "updating child")
	}
	return c, nil
}

func (svc *service) Delete(ctx context.Context, actorID, childID string) error {
	if _, err := svc.getAsParent(ctx, actorID, childID); err != nil {
		return err
	}
	return svc.repo.DeleteChild(ctx, childID)
}

// GenerateBio suggests a bio for the child. The suggestion is not saved.
func (svc *service) GenerateBio(ctx context.Context, actorID, childID string, br BioRequest) (Bio, error) {
	c, err := svc.getAsParent(ctx, actorID, childID)
	if err != nil {
		return Bio{}, err
	}
	if err = br.Validate(); err != nil {
		return Bio{}, err
	}

	text, err := svc.bioGen.GenerateBio(ctx, BioPrompt(c, br.Hints, NowFunc()))
	if err != nil {
		svc.logger.Error("generating bio", errors.Wrapf(err, "child %s", c.ID))
		return Bio{}, ErrBioUnavailable
	}
	return Bio{Bio: strings.TrimSpace(text)}, nil
}

// BioPrompt builds the instructions sent to the BioGenerator.
func BioPrompt(c Child, hints string, now time.Time) string {
	var b strings.Builder
	b.WriteString("Write a short, warm, third-person bio (2 to 3 sentences) for a child in a parents' group.\n")
	_, _ = fmt.Fprintf(&b, "Name: %s\n", c.DisplayName)
	if c.BirthDate != nil {
		if age, ok := c.BirthDate.Age(now); ok {
			_, _ = fmt.Fprintf(&b, "Age: %d\n", age)
		}
	}
	if hints != "" {
		_, _ = fmt.Fprintf(&b, "Details from the parent: %s\n", hints)
	}
	b.WriteString("Do not invent medical, address or school details.")
	return b.String()
}

// AllInGroup reports whether every id is a child of the group.
func (svc *service) AllInGroup(ctx context.Context, groupID string, ids ...string) (bool, error) {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return true, nil
	}
	uniqueIDs := make([]string, 0, len(unique))
	for id := range unique {
		uniqueIDs = append(uniqueIDs, id)
	}
	count, err := svc.repo.CountChildrenInGroup(ctx, groupID, uniqueIDs...)
	if err != nil {
		return false, errors.Wrap(err, "counting children")
	}
	return count == len(uniqueIDs), nil
}
