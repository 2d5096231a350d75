package main

import (
	"context"
	"log"

	"github.com/medkeep/medkeep/internal/client/cli"
	"github.com/medkeep/medkeep/internal/client/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go app.StartSyncLoop(ctx, cfg.SyncInterval)

	app.Run(ctx)
}
