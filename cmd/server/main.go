package main

import (
	"context"
	"fmt"

	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/crypto"
	myHTTP "github.com/ojin-app/keyguard/internal/handler/http"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/server"
	"github.com/ojin-app/keyguard/internal/service"
	"github.com/ojin-app/keyguard/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("keyguard-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	codec, err := crypto.NewEnvelopeCodec(cfg.App.DoubleEncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating envelope codec")
	}

	ctx := context.Background()
	storages, err := store.NewStorages(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	services := service.NewServices(storages, codec, *cfg, log)
	handler := myHTTP.NewHandler(services, cfg.App, log)

	srv, err := server.NewServer(handler, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
