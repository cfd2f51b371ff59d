// Command photogeo runs the photo and location intake bot.
package main

import (
	"context"
	"log"

	corebootstrap "github.com/m3rciful/photogeo/core/bootstrap"
	corecmd "github.com/m3rciful/photogeo/core/cmd"
	"github.com/m3rciful/photogeo/internal/bot"
	"github.com/m3rciful/photogeo/internal/config"
	"github.com/m3rciful/photogeo/migrations"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.(*config.Config)
	res, err := corebootstrap.Run(ctx, corebootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	return bot.NewApp(cfg, res.DB), nil
}
