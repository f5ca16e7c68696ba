package main

import (
	"context"
	"log"

	"github.com/avolkova/keepsafe/internal/server"
	"github.com/avolkova/keepsafe/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
