package http

import (
	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/service"
)

type Handler struct {
	services *service.Services

	// version is reported by the checkVersion action.
	version string

	logger *logger.Logger
}

func NewHandler(services *service.Services, cfg config.App, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		version:  cfg.Version,
		logger:   logger,
	}
}
