package event

import (
	"time"

	"github.com/grupka/grupka/core"
)

type Event struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"groupId"`
	OrganizerID    string    `json:"organizerId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	EventDate      time.Time `json:"eventDate"`
	HonoreeChildID *string   `json:"honoreeChildId"`
	GuestChildIDs  []string  `json:"guestChildIds"`
	CreatedAt      time.Time `json:"createdAt"` // UTC
	UpdatedAt      time.Time `json:"updatedAt"` // UTC
}

func (e Event) IsOrganizer(userID string) bool { return e.OrganizerID == userID }

type Comment struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"` // UTC
}

type NewEvent struct {
	Title          string    `json:"title" validate:"required,notblank,max=200"`
	Description    string    `json:"description" validate:"max=5000"`
	EventDate      time.Time `json:"eventDate" validate:"required"`
	HonoreeChildID *string   `json:"honoreeChildId" validate:"omitempty,uuid"`
	GuestChildIDs  []string  `json:"guestChildIds" validate:"omitempty,max=200,dive,uuid"`
}

func (ne *NewEvent) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	if ne.HonoreeChildID != nil && core.CleanString(*ne.HonoreeChildID) == "" {
		ne.HonoreeChildID = nil
	}
	ne.GuestChildIDs = dedupe(ne.GuestChildIDs)
	return core.Validate.Struct(ne)
}

// UpdateEvent holds a partial update.
// An empty HonoreeChildID clears the honoree; GuestChildIDs replaces the guest list when provided.
type UpdateEvent struct {
	Title          *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=5000"`
	EventDate      *time.Time `json:"eventDate"`
	HonoreeChildID *string    `json:"honoreeChildId" validate:"omitempty,uuid|len=0"`
	GuestChildIDs  *[]string  `json:"guestChildIds" validate:"omitempty,max=200,dive,uuid"`
}

func (ue *UpdateEvent) Validate() error {
	if ue.Title != nil {
		ue.Title = core.StringPtr(core.CleanString(*ue.Title))
	}
	if ue.Description != nil {
		ue.Description = core.StringPtr(core.CleanString(*ue.Description))
	}
	if ue.HonoreeChildID != nil {
		ue.HonoreeChildID = core.StringPtr(core.CleanString(*ue.HonoreeChildID))
	}
	if ue.GuestChildIDs != nil {
		guests := dedupe(*ue.GuestChildIDs)
		ue.GuestChildIDs = &guests
	}
	return core.Validate.Struct(ue)
}

type NewComment struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}

func (nc *NewComment) Validate() error {
	nc.Content = core.CleanString(nc.Content)
	return core.Validate.Struct(nc)
}

type QueryFilter struct {
	Upcoming bool
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = core.CleanString(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
