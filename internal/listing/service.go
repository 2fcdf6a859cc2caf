package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bricabrac/listings-api/internal/logging"
	"github.com/bricabrac/listings-api/internal/storage"
)

// Service orchestrates ownership checks and coordinates the repository and
// the artifact store for mutating operations. The current user id always
// comes from the verified request context, never from a payload.
type Service struct {
	repo      Repository
	artifacts storage.ArtifactStore
	cache     Cache // optional; nil disables caching
	logger    *logging.Logger
}

func NewService(repo Repository, artifacts storage.ArtifactStore, cache Cache, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		artifacts: artifacts,
		cache:     cache,
		logger:    logger,
	}
}

// Create persists a new listing owned by ownerID. Any client-supplied
// identifier has already been discarded: Input carries no id. The artifact
// is written first; a storage failure aborts the whole operation so no
// record can reference a file that was never written.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input Input, upload *Upload, origin string) (*Listing, error) {
	l := &Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
	}

	if upload != nil {
		url, err := s.artifacts.Store(ctx, upload.Content, upload.Filename, origin)
		if err != nil {
			return nil, fmt.Errorf("failed to store artifact: %w", err)
		}
		l.ImageURL = url
	}

	if err := s.repo.Insert(ctx, l); err != nil {
		// The record never existed; clean up the orphaned artifact.
		if l.ImageURL != "" {
			if relErr := s.artifacts.Release(ctx, l.ImageURL); relErr != nil {
				s.logger.Warn("failed to release orphaned artifact", "url", l.ImageURL, "error", relErr.Error())
			}
		}
		return nil, err
	}

	s.invalidateCache(ctx, l.ID)

	return l, nil
}

// Update applies input to an existing listing after verifying ownership.
// A replacement upload is stored before the old artifact is released and
// the new URL persisted; releasing the old artifact is best-effort.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input Input, upload *Upload, origin string) (*Listing, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.OwnerID != userID {
		return nil, ErrForbidden
	}

	if upload != nil {
		newURL, err := s.artifacts.Store(ctx, upload.Content, upload.Filename, origin)
		if err != nil {
			return nil, fmt.Errorf("failed to store artifact: %w", err)
		}

		if existing.ImageURL != "" {
			if err := s.artifacts.Release(ctx, existing.ImageURL); err != nil {
				s.logger.Warn("failed to release replaced artifact", "url", existing.ImageURL, "error", err.Error())
			}
		}

		existing.ImageURL = newURL
	}

	existing.Title = input.Title
	existing.Description = input.Description
	existing.Price = input.Price

	if err := s.repo.UpdateByID(ctx, existing); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)

	return existing, nil
}

// Delete removes a listing and its artifact after verifying ownership.
// Artifact release failures are logged and never block record deletion;
// the store already treats an absent file as success.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.OwnerID != userID {
		return ErrForbidden
	}

	if existing.ImageURL != "" {
		if err := s.artifacts.Release(ctx, existing.ImageURL); err != nil {
			s.logger.Warn("failed to release artifact on delete", "url", existing.ImageURL, "error", err.Error())
		}
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)

	return nil
}

// Get returns a single listing. Any authenticated caller may read any
// listing; there is no ownership check here.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	if s.cache != nil {
		cached, err := s.cache.GetByID(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("listing cache read failed", "error", err.Error())
		}
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetByID(ctx, l); err != nil {
			s.logger.Warn("listing cache write failed", "error", err.Error())
		}
	}

	return l, nil
}

// List returns all listings in creation order.
func (s *Service) List(ctx context.Context) ([]Listing, error) {
	if s.cache != nil {
		cached, err := s.cache.GetList(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("listing cache read failed", "error", err.Error())
		}
	}

	listings, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, listings); err != nil {
			s.logger.Warn("listing cache write failed", "error", err.Error())
		}
	}

	return listings, nil
}

func (s *Service) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("listing cache invalidation failed", "listing_id", id, "error", err.Error())
	}
}
