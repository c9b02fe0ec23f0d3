package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	emailsvc "github.com/grupka/grupka/services/email"
	logsvc "github.com/grupka/grupka/services/logger"
	"github.com/grupka/grupka/storage/database"
	sqlxrepos "github.com/grupka/grupka/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	// set up DB
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	mailSvc := emailsvc.NewConsoleService(emailsvc.Options{
		AppName:          conf.AppName,
		FrontendBaseURL:  conf.FrontendBaseURL,
		DefaultFromEmail: conf.DefaultFromEmail,
	}, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, user.Options{
		SecretKey:                 conf.SecretKey,
		PasswordResetTimeoutDelta: conf.PasswordResetTimeoutDelta,
		FromEmail:                 conf.DefaultFromEmail,
	})
	grpSvc := group.NewService(sqlxrepos.NewGroupRepository(db), usrSvc, mailSvc, logger, group.Options{
		InviteTTL:        conf.Invite.TTL,
		InviteCodeLength: conf.Invite.CodeLength,
	})

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrSvc:  usrSvc,
		usrRepo: usrRepo,
		grpSvc:  grpSvc,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin command failed: %v", err), err)
		}
		cancel()
		logger.Close()
		os.Exit(1)
	}
}
