package main

import (
	"context"
	"log"

	"github.com/m3rciful/officebot/bot"
	"github.com/m3rciful/officebot/core/buildinfo"
	corecmd "github.com/m3rciful/officebot/core/cmd"
)

func main() {
	log.Printf("officebot %s", buildinfo.String())
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return bot.Bootstrap(ctx, cfg.(*bot.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
