package main

import (
	"RainMatrix/src/cmd"
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		log.WithError(err).Error("rainmatrix failed")
		stop()
		os.Exit(1)
	}
}
