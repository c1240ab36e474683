package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confbot/internal/app"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"
)

func main() {
	var (
		cfgPath     string
		envFile     string
		stopTimeout time.Duration
	)
	pflag.StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config (yaml or json)")
	pflag.StringVar(&envFile, "env-file", ".env", "dotenv file with WEBHOOK_<NAME> secrets")
	pflag.DurationVar(&stopTimeout, "stop-timeout", 15*time.Second, "grace period for pending deliveries on shutdown")
	pflag.Parse()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	a, err := app.New(cfgPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	reason := app.StopUnknown
	select {
	case sig := <-sigs:
		reason = app.StopSIGINT
		if sig == syscall.SIGTERM {
			reason = app.StopSIGTERM
		}
	case <-a.Done():
		reason = app.StopFatalError
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.Stop(ctx, reason); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(os.Stderr, "stop:", err)
		os.Exit(1)
	}
}
