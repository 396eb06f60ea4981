package main

import (
	"context"
	"log"

	"supportbot/core/bootstrap"
	corecmd "supportbot/core/cmd"
	coreconfig "supportbot/core/config"
	"supportbot/internal/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return carrier{cfg}, nil
		},
		Bootstrap: func(ctx context.Context, cc corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg := cc.CoreConfig()
			res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res.Entries), nil
		},
	})
	if err != nil {
		log.Fatalf("supportbot: %v", err)
	}
}

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }
