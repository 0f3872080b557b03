package service

import (
	"github.com/dom/gifbox/internal/config"
	"github.com/dom/gifbox/internal/repository"
)

type Services struct {
	Accounts *AccountService
	Library  *LibraryService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	return &Services{
		Accounts: NewAccountService(repos.User, cfg.BcryptCost),
		Library:  NewLibraryService(repos.SavedGif),
	}
}
