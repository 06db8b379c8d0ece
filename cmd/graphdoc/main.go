package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lk2023060901/graphdoc-go/internal/cli"
	"github.com/lk2023060901/graphdoc-go/pkg/log"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.L().Sugar().Debugf)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to set GOMAXPROCS:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
