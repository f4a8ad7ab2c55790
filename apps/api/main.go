package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/peerhive/backend/apps/api/echo"
	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/request"
	"github.com/peerhive/backend/core/user"
	emailsvc "github.com/peerhive/backend/services/email"
	graphsvc "github.com/peerhive/backend/services/graph"
	logsvc "github.com/peerhive/backend/services/logger"
	"github.com/peerhive/backend/storage/document"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up the document store
	store, err := document.Open(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening document store: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			logger.Error("closing document store", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var linker request.MeetingLinker = graphsvc.StaticLinker{URL: conf.Graph.TeamsChannelURL}
	graph := graphsvc.NewService(conf, graphsvc.StaticTokenSource(conf.Graph.AccessToken), logger)
	if graph.HasAuthorization() {
		linker = graph
	}

	usrSvc := user.NewService(conf, store, mailSvc)
	reqSvc := request.NewService(conf, store, usrSvc, mailSvc, linker, logger)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : env %q", conf.Env))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		RequestSvc: reqSvc,
		Graph:      graph,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	signal.Notify(server.ShutdownSignal(), os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
