package core

import (
	"context"
	"strings"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/auth"
	"innostart.pro/innostart/internal/logger"
	"innostart.pro/innostart/internal/store"
)

type AccountService struct {
	dbStore *store.SQLiteStore
	log     *logger.Logger
}

func NewAccountService(db *store.SQLiteStore, log *logger.Logger) *AccountService {
	return &AccountService{dbStore: db, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) Signup(ctx context.Context, email, name, password string) (*store.User, error) {
	email = normalizeEmail(email)
	existing, err := s.dbStore.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.dbStore.CreateUser(ctx, email, strings.TrimSpace(name), hash)
	if err != nil {
		return nil, err
	}
	s.log.Info("User signed up", "user_id", user.ID)
	return user, nil
}

// Login checks the password and issues a bearer credential. Unknown email
// and wrong password fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.dbStore.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", apierr.ErrInvalidCredentials
	}
	return auth.GenerateJWT(user.ID)
}

// GetUser returns nil when the user no longer exists.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*store.User, error) {
	return s.dbStore.GetUserByID(ctx, id)
}
