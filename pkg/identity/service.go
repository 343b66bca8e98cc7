package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kidneysync/platform/pkg/common/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return models.User{}, fmt.Errorf("email required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return models.User{}, fmt.Errorf("full name required")
	}
	if len(req.Password) < minPasswordLength {
		return models.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	return s.repo.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	})
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}
