package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
)

type childRepository struct {
	db *DB
}

var _ child.Repository = (*childRepository)(nil)

func NewChildRepository(db *DB) child.Repository {
	return &childRepository{db: db}
}

func (repo *childRepository) nameExists(groupID, name, excludeID string) bool {
	for _, c := range repo.db.children {
		if c.GroupID == groupID && c.ID != excludeID && strings.EqualFold(c.DisplayName, name) {
			return true
		}
	}
	return false
}

func (repo *childRepository) CreateChild(_ context.Context, c child.Child) (child.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.nameExists(c.GroupID, c.DisplayName, "") {
		return child.Child{}, child.ErrDuplicateName
	}
	repo.db.children[c.ID] = &c
	return c, nil
}

func (repo *childRepository) GetChild(_ context.Context, id string) (child.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.children[id]; ok {
		return *c, nil
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) QueryChildren(_ context.Context, groupID string, page core.Page) ([]child.Child, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	children := make([]child.Child, 0)
	for _, c := range repo.db.children {
		if c.GroupID == groupID {
			children = append(children, *c)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return strings.ToLower(children[i].DisplayName) < strings.ToLower(children[j].DisplayName)
	})
	return paginate(children, page), nil
}

func (repo *childRepository) CountChildrenInGroup(_ context.Context, groupID string, ids ...string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, id := range ids {
		if c, ok := repo.db.children[id]; ok && c.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (repo *childRepository) NameExists(_ context.Context, groupID, name, excludeID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.nameExists(groupID, name, excludeID), nil
}

func (repo *childRepository) UpdateChild(_ context.Context, c child.Child) (child.Child, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.children[c.ID]; !ok {
		return child.Child{}, child.ErrNotFound
	}
	if repo.nameExists(c.GroupID, c.DisplayName, c.ID) {
		return child.Child{}, child.ErrDuplicateName
	}
	repo.db.children[c.ID] = &c
	return c, nil
}

func (repo *childRepository) DeleteChild(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.children[id]; !ok {
		return child.ErrNotFound
	}
	repo.db.deleteChild(id)
	return nil
}
