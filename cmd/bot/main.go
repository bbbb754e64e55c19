package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/atelier/internal/bot"
	"github.com/dmitrijs2005/atelier/internal/bot/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := bot.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
