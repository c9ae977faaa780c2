// Package auth registers and authenticates users and tracks their login
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username string `validate:"required,alphanum,min=3,max=150"`
	Email    string `validate:"omitempty,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
	Confirm  string `validate:"eqfield=Password"`
}

// UsernameError is a rejected username with the HTTP status to report.
type UsernameError struct {
	Status  int
	Message string
}

func (e *UsernameError) Error() string { return e.Message }

// ValidationError lists the registration problems in field order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Messages, "; ") }

var registerMessages = map[string]string{
	"Username.required": "Username field is required.",
	"Username.alphanum": "Username should only contain alphanumeric characters.",
	"Username.min":      "Username must be at least 3 characters.",
	"Username.max":      "Username must be at most 150 characters.",
	"Email.email":       "Enter a valid email address.",
	"Email.max":         "Enter a valid email address.",
	"Password.required": "Password is required.",
	"Password.min":      "Password must be at least 8 characters.",
	"Password.max":      "Password must be at most 72 characters.",
	"Confirm.eqfield":   "The two password fields didn't match.",
}

type Service struct {
	users           ports.UserStore
	validate        *validator.Validate
	cost            int
	defaultCurrency string
	logger          *log.Logger
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(users ports.UserStore, defaultCurrency string, opts ...Option) *Service {
	s := &Service{
		users:           users,
		validate:        validator.New(),
		cost:            bcrypt.DefaultCost,
		defaultCurrency: defaultCurrency,
		logger:          log.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentAuth)
	return s
}

// ValidateUsername checks a candidate username for the sign-up form.
func (s *Service) ValidateUsername(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &UsernameError{Status: http.StatusBadRequest, Message: "Username field is required."}
	}
	if err := s.validate.Var(username, "alphanum"); err != nil {
		return &UsernameError{Status: http.StatusBadRequest, Message: "Username should only contain alphanumeric characters."}
	}
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return &UsernameError{Status: http.StatusConflict, Message: "Username is already taken. Choose another one."}
	}
	return nil
}

// Register validates the form, hashes the password and stores the user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return core.User{}, err
		}
		ve := &ValidationError{}
		for _, fe := range verrs {
			msg, ok := registerMessages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fe.Field() + " is invalid."
			}
			ve.Messages = append(ve.Messages, msg)
		}
		return core.User{}, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, core.User{
		Username:     in.Username,
		Email:        in.Email,
		Currency:     s.defaultCurrency,
		PasswordHash: string(hash),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldUserID, u.ID,
		log.FieldUsername, u.Username,
		log.FieldOperation, log.OpRegister)
	return u, nil
}

// Authenticate returns the user when the password matches. Unknown users and
// wrong passwords both yield core.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUsername, u.Username, log.FieldOperation, log.OpLogin)
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}
