package user

import (
	"context"
	"errors"
	"time"

	"github.com/antonminaichev/gomarket/internal/types/user"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidCreds     = errors.New("invalid credentials")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrUserNotFound     = errors.New("user not found")
)

type Service struct {
	repo        UserRepository
	provisioner AccountProvisioner
	jwtSecret   []byte
	jwtTTL      time.Duration
}

func NewService(repo UserRepository, provisioner AccountProvisioner, jwtSecret []byte, jwtTTL time.Duration) *Service {
	return &Service{repo: repo, provisioner: provisioner, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// Register creates the user and provisions its balance and cart, the
// explicit replacement for any implicit on-create wiring.
func (s *Service) Register(ctx context.Context, login, password string) (*user.User, error) {
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Login:        login,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.provisioner.ProvisionAccount(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, login, password string) (string, error) {
	u, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCreds
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   login,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}
