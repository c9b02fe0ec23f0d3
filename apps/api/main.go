package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/robfig/cron/v3"

	dig_container "github.com/grupka/grupka/apps/api/di/dig"
	echoapi "github.com/grupka/grupka/apps/api/echo"
	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
	logsvc "github.com/grupka/grupka/services/logger"
	metricsvc "github.com/grupka/grupka/services/metrics"
)

func main() {
	conf := core.NewConfig()
	c := dig_container.New(conf)

	must(c.Invoke(func(
		logger *logsvc.RollbarLogger,
		db dig_container.DBHandle,
		grpSvc group.Service,
		metrics *metricsvc.Metrics,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		defer logger.Close()
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close the database", err)
			}
		}()
		defer logger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Invite Purge Job

		sched := cron.New()
		if _, err := sched.AddFunc(conf.Server.PurgeSchedule, purgeInvites(grpSvc, metrics, logger)); err != nil {
			logger.Fatal(fmt.Sprintf("invalid purge schedule %q: %v", conf.Server.PurgeSchedule, err), err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func purgeInvites(grpSvc group.Service, metrics *metricsvc.Metrics, logger core.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := grpSvc.PurgeExpiredInvites(ctx)
		if err != nil {
			logger.Error("purging expired invites", err)
			return
		}
		metrics.RecordInvitesPurged(n)
		if n > 0 {
			logger.Info("purged expired invites", map[string]interface{}{"count": n})
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
