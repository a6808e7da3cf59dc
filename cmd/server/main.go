package main

import (
	"context"
	"log"

	"github.com/apetrov/assetgate/internal/server"
	"github.com/apetrov/assetgate/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}

	app.Run(context.Background())
}
