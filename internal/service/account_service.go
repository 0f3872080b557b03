package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AccountService struct {
	userRepo repository.UserRepository
	cost     int
	// dummyHash is compared against when the handle is unknown.
	dummyHash []byte
}

func NewAccountService(userRepo repository.UserRepository, bcryptCost int) *AccountService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	// Built up front so the first unknown-handle login costs one comparison.
	// Only a cost above bcrypt.MaxCost fails here, and CreateUser fails too then.
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	return &AccountService{
		userRepo:  userRepo,
		cost:      bcryptCost,
		dummyHash: dummyHash,
	}
}

// NormalizeHandle is applied to every handle before it is stored or looked up.
func NormalizeHandle(handle string) string {
	return rpc.NormalizeHandle(handle)
}

func (s *AccountService) CreateUser(ctx context.Context, handle, secret string) (*domain.User, error) {
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}

	user := &domain.User{
		ID:         uuid.New(),
		Handle:     NormalizeHandle(handle),
		SecretHash: string(hashedSecret),
		CreatedAt:  time.Now().UTC(),
	}

	// The unique index on handle is the only duplicate check, so two
	// concurrent registrations cannot both succeed.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrDuplicateHandle
		}
		return nil, err
	}

	return user, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown handle and for a
// wrong secret alike.
func (s *AccountService) Authenticate(ctx context.Context, handle, secret string) (*domain.User, error) {
	user, err := s.userRepo.GetByHandle(ctx, NormalizeHandle(handle))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}
