package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/task-tracker-api/internal/auth"
	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type RegisterInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is what a successful register or login hands back.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

type AuthService struct {
	users  repo.UserRepository
	tokens *auth.TokenManager
	cost   int
	// dummyHash is compared against on unknown emails so that the response
	// time does not reveal whether an account exists.
	dummyHash []byte
}

// NewAuthService fails when bcryptCost is outside the range bcrypt accepts,
// since neither registration nor the login timing guard could work.
func NewAuthService(users repo.UserRepository, tokens *auth.TokenManager, bcryptCost int) (*AuthService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		cost:      bcryptCost,
		dummyHash: dummy,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if err := validateRegister(in); err != nil {
		return AuthResult{}, err
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, repo.ErrorConflict
	} else if !errors.Is(err, repo.ErrorNotFound) {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	// Уникальный индекс по email остаётся последней проверкой при гонке
	user, err := s.users.Create(ctx, model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, repo.ErrorNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me returns the current account of an authenticated actor.
func (s *AuthService) Me(ctx context.Context, actor model.Actor) (model.PublicUser, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) issue(user model.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user.Public()}, nil
}

func validateRegister(in RegisterInput) error {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return invalid("All fields are required")
	}
	if len(in.Password) < minPasswordLength {
		return invalid("Password must be at least 6 characters")
	}
	if !emailPattern.MatchString(in.Email) {
		return invalid("Invalid email format")
	}
	if in.Role != "" && !in.Role.Valid() {
		return invalid("Role must be one of: user, admin")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
