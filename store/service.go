package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrBadSlug signals a slug that is not URL-safe.
var ErrBadSlug = errors.New("store: slug must be lowercase letters, digits and hyphens")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ProfileStore abstracts repository operations for the service.
type ProfileStore interface {
	Create(ctx context.Context, ownerUserID, name, slug string) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	GetBySlug(ctx context.Context, slug string) (Profile, error)
	GetByOwner(ctx context.Context, ownerUserID string) (Profile, error)
	List(ctx context.Context, limit int) ([]Profile, error)
}

// Service exposes business-level store operations.
type Service struct {
	repo ProfileStore
}

// NewService builds a Service using the provided repository.
func NewService(repo ProfileStore) *Service {
	return &Service{repo: repo}
}

// Onboard creates a seller's store. New stores start unverified.
func (s *Service) Onboard(ctx context.Context, ownerUserID, name, slug string) (Profile, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" {
		return Profile{}, fmt.Errorf("store: name required")
	}
	if !slugPattern.MatchString(slug) {
		return Profile{}, ErrBadSlug
	}
	return s.repo.Create(ctx, ownerUserID, name, slug)
}

// GetByID returns the store profile for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug returns the store profile behind a public storefront URL.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Profile, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(slug))
}

// GetByOwner returns the store owned by a user.
func (s *Service) GetByOwner(ctx context.Context, ownerUserID string) (Profile, error) {
	return s.repo.GetByOwner(ctx, ownerUserID)
}

// List returns up to limit store profiles.
func (s *Service) List(ctx context.Context, limit int) ([]Profile, error) {
	return s.repo.List(ctx, limit)
}
