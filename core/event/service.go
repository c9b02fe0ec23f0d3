package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	"github.com/grupka/grupka/core/group"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound            = core.NewNotFoundError("event not found")
	ErrCommentNotFound     = core.NewNotFoundError("comment not found")
	ErrNotOrganizerOrAdmin = core.NewForbiddenError("only the organizer or a group admin can do this")
	ErrSurprise            = core.NewForbiddenError("the organizer cannot access this event's comments")
	ErrNotAuthor           = core.NewForbiddenError("only the author can delete this comment")
	errUnknownChildren     = errors.New("children must belong to the event's group")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, groupID string, filter QueryFilter, now time.Time, page core.Page) ([]Event, error)
		// UpdateEvent replaces the guest list with e.GuestChildIDs.
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id string) (Comment, error)
		// QueryComments returns nothing when viewerID is the event's organizer.
		QueryComments(ctx context.Context, eventID, viewerID string, page core.Page) ([]Comment, error)
		DeleteComment(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, actorID, groupID string, ne NewEvent) (Event, error)
		Query(ctx context.Context, actorID, groupID string, filter QueryFilter, page core.Page) ([]Event, error)
		Get(ctx context.Context, actorID, eventID string) (Event, error)
		Update(ctx context.Context, actorID, eventID string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, actorID, eventID string) error

		QueryComments(ctx context.Context, actorID, eventID string, page core.Page) ([]Comment, error)
		AddComment(ctx context.Context, actorID, eventID string, nc NewComment) (Comment, error)
		DeleteComment(ctx context.Context, actorID, eventID, commentID string) error
	}

	service struct {
		repo     Repository
		grpSvc   group.Service
		childSvc child.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, grpSvc group.Service, childSvc child.Service) Service {
	return &service{repo: repo, grpSvc: grpSvc, childSvc: childSvc}
}

// checkChildren validates that the honoree and guests are children of the group.
func (svc *service) checkChildren(ctx context.Context, groupID string, honoreeID *string, guestIDs []string) error {
	var fields []core.FieldError
	if honoreeID != nil && *honoreeID != "" {
		ok, err := svc.childSvc.AllInGroup(ctx, groupID, *honoreeID)
		if err != nil {
			return err
		}
		if !ok {
			fields = append(fields, core.FieldError{Field: "honoreeChildId", Error: errUnknownChildren.Error()})
		}
	}
	if len(guestIDs) > 0 {
		ok, err := svc.childSvc.AllInGroup(ctx, groupID, guestIDs...)
		if err != nil {
			return err
		}
		if !ok {
			fields = append(fields, core.FieldError{Field: "guestChildIds", Error: errUnknownChildren.Error()})
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(errUnknownChildren, fields...)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actorID, groupID string, ne NewEvent) (Event, error) {
	if _, err := svc.grpSvc.RequireMember(ctx, groupID, actorID); err != nil {
		return Event{}, err
	}
	if err := ne.Validate(); err != nil {
		return Event{}, err
	}
	if err := svc.checkChildren(ctx, groupID, ne.HonoreeChildID, ne.GuestChildIDs); err != nil {
		return Event{}, err
	}

	now := NowFunc().UTC()
	guests := ne.GuestChildIDs
	if guests == nil {
		guests = []string{}
	}
	e, err := svc.repo.CreateEvent(ctx, Event{
		ID:             uuid.NewString(),
		GroupID:        groupID,
		OrganizerID:    actorID,
		Title:          ne.Title,
		Description:    ne.Description,
		EventDate:      ne.EventDate.UTC(),
		HonoreeChildID: ne.HonoreeChildID,
		GuestChildIDs:  guests,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	return e, nil
}

func (svc *service) Query(ctx context.Context, actorID, groupID string, filter QueryFilter, page core.Page) ([]Event, error) {
	if _, err := svc.grpSvc.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEvents(ctx, groupID, filter, NowFunc().UTC(), page)
}

// Get returns the event if actorID is a member of its group.
func (svc *service) Get(ctx context.Context, actorID, eventID string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if _, err = svc.grpSvc.RequireMember(ctx, e.GroupID, actorID); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (svc *service) getAsManager(ctx context.Context, actorID, eventID string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	m, err := svc.grpSvc.RequireMember(ctx, e.GroupID, actorID)
	if err != nil {
		return Event{}, err
	}
	if !e.IsOrganizer(actorID) && !m.IsAdmin() {
		return Event{}, ErrNotOrganizerOrAdmin
	}
	return e, nil
}

func (svc *service) Update(ctx context.Context, actorID, eventID string, ue UpdateEvent) (Event, error) {
	e, err := svc.getAsManager(ctx, actorID, eventID)
	if err != nil {
		return Event{}, err
	}
	if err = ue.Validate(); err != nil {
		return Event{}, err
	}
	var guests []string
	if ue.GuestChildIDs != nil {
		guests = *ue.GuestChildIDs
	}
	if err = svc.checkChildren(ctx, e.GroupID, ue.HonoreeChildID, guests); err != nil {
		return Event{}, err
	}

	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.EventDate != nil {
		e.EventDate = ue.EventDate.UTC()
	}
	if ue.HonoreeChildID != nil {
		if *ue.HonoreeChildID == "" {
			e.HonoreeChildID = nil
		} else {
			e.HonoreeChildID = ue.HonoreeChildID
		}
	}
	if ue.GuestChildIDs != nil {
		e.GuestChildIDs = guests
	}
	e.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *service) Delete(ctx context.Context, actorID, eventID string) error {
	if _, err := svc.getAsManager(ctx, actorID, eventID); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, eventID)
}

// getForComments returns the event if actorID may access its comment thread:
// any group member except the organizer.
func (svc *service) getForComments(ctx context.Context, actorID, eventID string) (Event, error) {
	e, err := svc.Get(ctx, actorID, eventID)
	if err != nil {
		return Event{}, err
	}
	if e.IsOrganizer(actorID) {
		return Event{}, ErrSurprise
	}
	return e, nil
}

func (svc *service) QueryComments(ctx context.Context, actorID, eventID string, page core.Page) ([]Comment, error) {
	if _, err := svc.getForComments(ctx, actorID, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryComments(ctx, eventID, actorID, page)
}

func (svc *service) AddComment(ctx context.Context, actorID, eventID string, nc NewComment) (Comment, error) {
	if _, err := svc.getForComments(ctx, actorID, eventID); err != nil {
		return Comment{}, err
	}
	if err := nc.Validate(); err != nil {
		return Comment{}, err
	}
	c, err := svc.repo.CreateComment(ctx, Comment{
		ID:        uuid.NewString(),
		EventID:   eventID,
		AuthorID:  actorID,
		Content:   nc.Content,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Comment{}, errors.Wrap(err, "creating comment")
	}
	return c, nil
}

func (svc *service) DeleteComment(ctx context.Context, actorID, eventID, commentID string) error {
	if _, err := svc.getForComments(ctx, actorID, eventID); err != nil {
		return err
	}
	c, err := svc.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.EventID != eventID {
		return ErrCommentNotFound
	}
	if c.AuthorID != actorID {
		return ErrNotAuthor
	}
	return svc.repo.DeleteComment(ctx, commentID)
}
