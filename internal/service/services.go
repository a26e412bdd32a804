package service

import (
	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/store"
)

type Services struct {
	AuthService    AuthService
	EscrowService  EscrowService
	ContactService ContactService
}

func NewServices(storages *store.Storages, codec *crypto.EnvelopeCodec, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	return &Services{
		AuthService:    NewAuthService(storages.UserRepository, cfg.App, logger),
		EscrowService:  NewEscrowService(storages.UserRepository, codec, cfg.App, logger),
		ContactService: NewContactService(storages.ContactRepository, logger),
	}
}
