// Package registry registers users. Phone numbers are unique; the store's
// unique index settles concurrent registrations of the same number.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"

	"github.com/sirupsen/logrus"
)

const maxPhoneLength = 20

// Service creates and resolves users.
type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

// New builds a registry over s.
func New(s store.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: s, log: log}
}

// CreateUser registers phone. A number that is already registered yields
// domain.ErrUserAlreadyExists, including when a concurrent registration
// wins between the lookup and the insert.
func (s *Service) CreateUser(ctx context.Context, phone string) (*domain.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || len(phone) > maxPhoneLength {
		return nil, domain.ErrInvalidPhone
	}

	_, err := s.store.UserByPhone(ctx, phone)
	switch {
	case err == nil:
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
	}

	user := &domain.User{PhoneNumber: phone}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrUserAlreadyExists
		}
		s.log.WithFields(logrus.Fields{"error": err.Error()}).Error("Failed to create user")
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// GetUser resolves a user by id.
func (s *Service) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
	}
	return user, nil
}
