package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	"github.com/grupka/grupka/core/event"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	aisvc "github.com/grupka/grupka/services/ai"
	emailsvc "github.com/grupka/grupka/services/email"
	logsvc "github.com/grupka/grupka/services/logger"
	inmemdb "github.com/grupka/grupka/storage/database/inmem"
)

// Password satisfies the password policy for any of the users created here.
const Password = "Kx9!mZq2#pLw"

// Env wires every service on top of a fresh in-memory DB.
type Env struct {
	Conf *core.Config
	DB   *inmemdb.DB
	Mail *emailsvc.ConsoleServiceMock

	UserRepo  user.Repository
	GroupRepo group.Repository
	ChildRepo child.Repository
	EventRepo event.Repository

	UserSvc  user.Service
	GroupSvc group.Service
	ChildSvc child.Service
	EventSvc event.Service
}

func NewEnv(t testing.TB, bioGen ...child.BioGenerator) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewTestLogger(t)
	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock(emailsvc.Options{
		AppName:          conf.AppName,
		FrontendBaseURL:  conf.FrontendBaseURL,
		DefaultFromEmail: conf.DefaultFromEmail,
	}, logger)

	var gen child.BioGenerator = aisvc.StaticGenerator{}
	if len(bioGen) > 0 {
		gen = bioGen[0]
	}

	env := &Env{
		Conf:      conf,
		DB:        db,
		Mail:      mailSvc,
		UserRepo:  inmemdb.NewUserRepository(db),
		GroupRepo: inmemdb.NewGroupRepository(db),
		ChildRepo: inmemdb.NewChildRepository(db),
		EventRepo: inmemdb.NewEventRepository(db),
	}
	env.UserSvc = user.NewService(env.UserRepo, mailSvc, user.Options{
		SecretKey:                 conf.SecretKey,
		PasswordResetTimeoutDelta: conf.PasswordResetTimeoutDelta,
		FromEmail:                 conf.DefaultFromEmail,
	})
	env.GroupSvc = group.NewService(env.GroupRepo, env.UserSvc, mailSvc, logger, group.Options{
		InviteTTL:        conf.Invite.TTL,
		InviteCodeLength: conf.Invite.CodeLength,
	})
	env.ChildSvc = child.NewService(env.ChildRepo, env.GroupSvc, gen, logger)
	env.EventSvc = event.NewService(env.EventRepo, env.GroupSvc, env.ChildSvc)
	return env
}

func CreateUser(t testing.TB, repo user.Repository, name, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: name,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateGroup creates a group administered by owner.
func CreateGroup(t testing.TB, svc group.Service, owner user.User, name string) group.UserGroup {
	t.Helper()

	grp, err := svc.Create(context.Background(), owner.ID, group.NewGroup{Name: name})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

func AddMember(t testing.TB, repo group.Repository, groupID string, usr user.User, role group.Role) group.Membership {
	t.Helper()

	m, err := repo.CreateMembership(context.Background(), group.Membership{
		GroupID:  groupID,
		UserID:   usr.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	return m
}

func CreateChild(t testing.TB, svc child.Service, parent user.User, groupID, name string, birthDate ...string) child.Child {
	t.Helper()

	nc := child.NewChild{DisplayName: name}
	if len(birthDate) > 0 {
		nc.BirthDate = birthDate[0]
	}
	c, err := svc.Create(context.Background(), parent.ID, groupID, nc)
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return c
}

func CreateEvent(t testing.TB, svc event.Service, organizer user.User, groupID, title string, date time.Time, guests ...child.Child) event.Event {
	t.Helper()

	ne := event.NewEvent{Title: title, EventDate: date}
	for _, g := range guests {
		ne.GuestChildIDs = append(ne.GuestChildIDs, g.ID)
	}
	e, err := svc.Create(context.Background(), organizer.ID, groupID, ne)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return e
}
