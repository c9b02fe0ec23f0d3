package inmemdb

import (
	"sync"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	"github.com/grupka/grupka/core/event"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
)

type membershipKey struct {
	groupID string
	userID  string
}

// DB is a thread-safe in-memory store backing every repository.
// Deletions cascade the way the SQL schema does.
type DB struct {
	mutex sync.RWMutex

	users       map[string]*user.User
	groups      map[string]*group.Group
	memberships map[membershipKey]*group.Membership
	invites     map[string]*group.Invite
	children    map[string]*child.Child
	events      map[string]*event.Event
	comments    map[string]*event.Comment
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		groups:      make(map[string]*group.Group),
		memberships: make(map[membershipKey]*group.Membership),
		invites:     make(map[string]*group.Invite),
		children:    make(map[string]*child.Child),
		events:      make(map[string]*event.Event),
		comments:    make(map[string]*event.Comment),
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = make(map[string]*user.User)
	db.groups = make(map[string]*group.Group)
	db.memberships = make(map[membershipKey]*group.Membership)
	db.invites = make(map[string]*group.Invite)
	db.children = make(map[string]*child.Child)
	db.events = make(map[string]*event.Event)
	db.comments = make(map[string]*event.Comment)
}

// the delete* helpers expect the write lock to be held

func (db *DB) deleteGroup(id string) {
	delete(db.groups, id)
	for key := range db.memberships {
		if key.groupID == id {
			delete(db.memberships, key)
		}
	}
	for code, inv := range db.invites {
		if inv.GroupID == id {
			delete(db.invites, code)
		}
	}
	for cid, c := range db.children {
		if c.GroupID == id {
			db.deleteChild(cid)
		}
	}
	for eid, e := range db.events {
		if e.GroupID == id {
			db.deleteEvent(eid)
		}
	}
}

func (db *DB) deleteChild(id string) {
	delete(db.children, id)
	for _, e := range db.events {
		if e.HonoreeChildID != nil && *e.HonoreeChildID == id {
			e.HonoreeChildID = nil
		}
		guests := e.GuestChildIDs[:0:0]
		for _, gid := range e.GuestChildIDs {
			if gid != id {
				guests = append(guests, gid)
			}
		}
		e.GuestChildIDs = guests
	}
}

func (db *DB) deleteEvent(id string) {
	delete(db.events, id)
	for cid, c := range db.comments {
		if c.EventID == id {
			delete(db.comments, cid)
		}
	}
}

func paginate[T any](items []T, page core.Page) []T {
	start, end := page.Slice(len(items))
	out := make([]T, 0, end-start)
	return append(out, items[start:end]...)
}
