package dig_container

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/grupka/grupka/apps/api/echo"
	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	"github.com/grupka/grupka/core/event"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	aisvc "github.com/grupka/grupka/services/ai"
	emailsvc "github.com/grupka/grupka/services/email"
	logsvc "github.com/grupka/grupka/services/logger"
	metricsvc "github.com/grupka/grupka/services/metrics"
	"github.com/grupka/grupka/storage/cache"
	"github.com/grupka/grupka/storage/database"
	inmemdb "github.com/grupka/grupka/storage/database/inmem"
	sqlxrepos "github.com/grupka/grupka/storage/database/sqlx"
)

// Storage holds the repositories of the configured database engine.
type Storage struct {
	dig.Out

	Users    user.Repository
	Groups   group.Repository
	Children child.Repository
	Events   event.Repository
	DB       DBHandle
}

// DBHandle is the live database connection, if any.
type DBHandle interface {
	echoapi.Pinger
	Close() error
}

type memHandle struct{}

func (memHandle) PingContext(context.Context) error { return nil }
func (memHandle) Close() error                      { return nil }

func newLogger(conf *core.Config) (*logsvc.RollbarLogger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return logsvc.NewRollbarLogger(zl, conf), nil
}

func newStorage(conf *core.Config, logger core.Logger) (Storage, error) {
	if conf.Database.InMemory {
		logger.Warn("using the in-memory store, data will not survive a restart")
		db := inmemdb.NewDB()
		return Storage{
			Users:    inmemdb.NewUserRepository(db),
			Groups:   inmemdb.NewGroupRepository(db),
			Children: inmemdb.NewChildRepository(db),
			Events:   inmemdb.NewEventRepository(db),
			DB:       memHandle{},
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return Storage{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return Storage{}, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return Storage{}, errors.Wrap(err, "migrating database")
	}
	return Storage{
		Users:    sqlxrepos.NewUserRepository(db),
		Groups:   sqlxrepos.NewGroupRepository(db),
		Children: sqlxrepos.NewChildRepository(db),
		Events:   sqlxrepos.NewEventRepository(db),
		DB:       db,
	}, nil
}

func newRevocationStore(conf *core.Config) cache.RevocationStore {
	if conf.Redis.Enabled {
		return cache.NewRedisStore(cache.NewRedisClient(conf.Redis.Address, conf.Redis.Password, conf.Redis.DB))
	}
	return cache.NewMemoryStore()
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	opts := emailsvc.Options{
		AppName:          conf.AppName,
		FrontendBaseURL:  conf.FrontendBaseURL,
		DefaultFromEmail: conf.DefaultFromEmail,
	}
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(opts, logger)
	}
	return emailsvc.NewSendgridService(conf.SendgridApiKey, opts, logger)
}

func newBioGenerator(conf *core.Config, logger core.Logger) child.BioGenerator {
	if conf.OpenAI.APIKey == "" {
		logger.Info("no openai key configured, serving canned bios")
		return aisvc.StaticGenerator{}
	}
	return aisvc.NewOpenAIGenerator(aisvc.Options{
		APIKey:    conf.OpenAI.APIKey,
		BaseURL:   conf.OpenAI.BaseURL,
		Model:     conf.OpenAI.Model,
		MaxTokens: conf.OpenAI.MaxTokens,
		Timeout:   conf.OpenAI.Timeout,
	}, logger)
}

func newUserService(conf *core.Config, repo user.Repository, mailSvc core.EmailService) user.Service {
	return user.NewService(repo, mailSvc, user.Options{
		SecretKey:                 conf.SecretKey,
		PasswordResetTimeoutDelta: conf.PasswordResetTimeoutDelta,
		FromEmail:                 conf.DefaultFromEmail,
	})
}

func newGroupService(
	conf *core.Config,
	repo group.Repository,
	usrSvc user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) group.Service {
	return group.NewService(repo, usrSvc, mailSvc, logger, group.Options{
		InviteTTL:        conf.Invite.TTL,
		InviteCodeLength: conf.Invite.CodeLength,
	})
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Metrics     *metricsvc.Metrics
	DB          DBHandle
	Revocations cache.RevocationStore
	UserSvc     user.Service
	GroupSvc    group.Service
	ChildSvc    child.Service
	EventSvc    event.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Metrics:     p.Metrics,
		DB:          p.DB,
		Revocations: p.Revocations,
		UserSvc:     p.UserSvc,
		GroupSvc:    p.GroupSvc,
		ChildSvc:    p.ChildSvc,
		EventSvc:    p.EventSvc,
	})
}

// New returns a new dependency injection dig.Container
func New(conf *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newStorage))
	must(c.Provide(newRevocationStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newBioGenerator))
	must(c.Provide(metricsvc.New))
	must(c.Provide(newUserService))
	must(c.Provide(newGroupService))
	must(c.Provide(child.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
