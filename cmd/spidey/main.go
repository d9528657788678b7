package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/spidey/app"
	"github.com/searchktools/spidey/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "spidey:", err)
		os.Exit(2)
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "spidey:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "spidey:", err)
		os.Exit(1)
	}
}
