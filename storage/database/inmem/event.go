package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

// copyEvent detaches the guest list from the stored event.
func copyEvent(e event.Event) event.Event {
	e.GuestChildIDs = append([]string{}, e.GuestChildIDs...)
	if e.HonoreeChildID != nil {
		id := *e.HonoreeChildID
		e.HonoreeChildID = &id
	}
	return e
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := copyEvent(e)
	repo.db.events[e.ID] = &stored
	return copyEvent(stored), nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.events[id]; ok {
		return copyEvent(*e), nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, groupID string, filter event.QueryFilter, now time.Time, page core.Page) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0)
	for _, e := range repo.db.events {
		if e.GroupID != groupID {
			continue
		}
		if filter.Upcoming && e.EventDate.Before(now) {
			continue
		}
		events = append(events, copyEvent(*e))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return events[i].ID < events[j].ID
	})
	return paginate(events, page), nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[e.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	stored := copyEvent(e)
	repo.db.events[e.ID] = &stored
	return copyEvent(stored), nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	repo.db.deleteEvent(id)
	return nil
}

func (repo *eventRepository) CreateComment(_ context.Context, c event.Comment) (event.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[c.EventID]; !ok {
		return event.Comment{}, event.ErrNotFound
	}
	repo.db.comments[c.ID] = &c
	return c, nil
}

func (repo *eventRepository) GetComment(_ context.Context, id string) (event.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.comments[id]; ok {
		return *c, nil
	}
	return event.Comment{}, event.ErrCommentNotFound
}

func (repo *eventRepository) QueryComments(_ context.Context, eventID, viewerID string, page core.Page) ([]event.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	comments := make([]event.Comment, 0)
	e, ok := repo.db.events[eventID]
	if !ok || e.OrganizerID == viewerID {
		return comments, nil
	}
	for _, c := range repo.db.comments {
		if c.EventID == eventID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return paginate(comments, page), nil
}

func (repo *eventRepository) DeleteComment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.comments[id]; !ok {
		return event.ErrCommentNotFound
	}
	delete(repo.db.comments, id)
	return nil
}
