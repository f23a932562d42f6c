package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/SomeAverageDev/konnectors/cmd/batch"
	"github.com/SomeAverageDev/konnectors/cmd/bills"
	"github.com/SomeAverageDev/konnectors/cmd/ledger"
	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/cmd/run"
	"github.com/SomeAverageDev/konnectors/cmd/vendors"
)

func init() {
	// Logging before the configuration is read follows KONNECTORS_LOG_LEVEL.
	root.Log.SetLevel(envLogLevel())

	root.Init()

	root.Cmd.AddCommand(run.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(ledger.Cmd)
	root.Cmd.AddCommand(bills.Cmd)
	root.Cmd.AddCommand(vendors.Cmd)
}

func envLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("KONNECTORS_LOG_LEVEL")))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
