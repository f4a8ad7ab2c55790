package main

import (
	"log"
	"os"

	"github.com/peerhive/backend/core"
	logsvc "github.com/peerhive/backend/services/logger"
	"github.com/peerhive/backend/storage/document"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	storeLogger := logsvc.NewRollbarLogger(logger, conf)
	storeLogger.Enable(false)

	// set up the document store
	store, err := document.Open(conf, storeLogger)
	errAndDie(err)
	defer store.Close()

	// start CLI
	cli := commandLine{repo: store}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
