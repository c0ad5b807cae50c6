package main

import (
	"context"
	"log"

	"github.com/akarpov/taskdeck/internal/server"
	"github.com/akarpov/taskdeck/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
