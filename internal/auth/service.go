package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

const (
	minNameLength     = 4
	minPasswordLength = 7
)

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *Tokens
	emailFormat *regexp.Regexp
	hashCost    int
}

// NewService constructs a new Service. Only addresses at emailDomain may sign up.
func NewService(repo Repository, tokens *Tokens, emailDomain string) *Service {
	domain := strings.ToLower(strings.TrimSpace(emailDomain))
	return &Service{
		repo:        repo,
		tokens:      tokens,
		emailFormat: regexp.MustCompile(`^[a-z0-9._%+-]+@` + regexp.QuoteMeta(domain) + `$`),
		hashCost:    bcrypt.DefaultCost,
	}
}

// SignupInput carries the signup request after boundary validation.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup registers a new account and returns a session for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, fmt.Errorf("%w: name must be more than 3 characters", httpx.ErrValidation)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be more than 6 characters", httpx.ErrValidation)
	}
	if !s.emailFormat.MatchString(email) {
		return nil, fmt.Errorf("%w: email must belong to the company domain", httpx.ErrValidation)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user already exists", httpx.ErrDuplicate)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc, err := s.repo.Create(ctx, NewAccount{Name: name, Email: email, PasswordHash: string(hash)})
	if err != nil {
		return nil, err
	}
	return s.session(acc)
}

// Login validates email/password credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	acc, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.session(acc)
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, shared.ErrInvalidCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, shared.ErrInvalidCredentials)
	}
	if acc.Suspended() {
		return nil, fmt.Errorf("%w: %w", httpx.ErrForbidden, shared.ErrAccountSuspended)
	}
	return acc, nil
}

func (s *Service) session(acc *Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(acc)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: acc.View()}, nil
}
