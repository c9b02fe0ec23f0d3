package inmemdb

import (
	"context"
	"sort"

	"github.com/grupka/grupka/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].DisplayName < users[j].DisplayName })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}
