package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"shopBackend/internal/apierr"
	"shopBackend/internal/auth"
	"shopBackend/internal/logger"
	"shopBackend/models"
	"shopBackend/repository"
)

// Messages returned to clients by the account operations.
const (
	MsgUsernameTaken      = "Username already exists"
	MsgInvalidCredentials = "Invalid username or password"
)

// AccountService registers users and exchanges credentials for bearer tokens.
type AccountService struct {
	users  repository.UserRepositoryI
	issuer *auth.Issuer
	log    *logger.Logger
	tracer trace.Tracer
}

func NewAccountService(users repository.UserRepositoryI, issuer *auth.Issuer, log *logger.Logger) *AccountService {
	if log == nil {
		log = logger.Nop()
	}
	return &AccountService{
		users:  users,
		issuer: issuer,
		log:    log.With("service", "AccountService"),
		tracer: otel.Tracer("shopBackend/service"),
	}
}

// RegisterAdmin creates an ADMIN account and returns a token for it.
func (s *AccountService) RegisterAdmin(ctx context.Context, username, password string) (string, error) {
	return s.register(ctx, username, password, models.RoleAdmin)
}

// RegisterCustomer creates a CUSTOMER account and returns a token for it.
func (s *AccountService) RegisterCustomer(ctx context.Context, username, password string) (string, error) {
	return s.register(ctx, username, password, models.RoleCustomer)
}

// Register creates an account with a role given by name ("admin", "CUSTOMER", ...).
func (s *AccountService) Register(ctx context.Context, username, password, role string) (string, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return "", apierr.Validation("Invalid role: %s", role)
	}
	return s.register(ctx, username, password, r)
}

func (s *AccountService) register(ctx context.Context, username, password string, role models.Role) (string, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Register")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return "", apierr.Validation("Username is required")
	}
	if password == "" {
		return "", apierr.Validation("Password is required")
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return "", apierr.Validation(MsgUsernameTaken)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, username, hash, role)
	if err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apierr.Validation(MsgUsernameTaken)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "username", u.Username, "role", string(u.Role))
	return s.issuer.Issue(u)
}

// Login checks credentials and returns a fresh token. Unknown users and wrong
// passwords fail identically.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "AccountService.Login")
	defer span.End()

	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		s.log.Debug("login rejected", "username", username)
		return "", apierr.Unauthorized(MsgInvalidCredentials)
	}
	return s.issuer.Issue(u)
}

// EnsureAdmin creates the admin account if the username is free. Used to seed
// an operator account at startup.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil || exists {
		return false, err
	}
	if _, err := s.RegisterAdmin(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}
