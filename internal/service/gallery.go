package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

// GalleryService manages the public gallery. Entries are snapshots: later
// changes to the source logo are not reflected.
type GalleryService struct {
	public repository.PublicLogoRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewGalleryService(public repository.PublicLogoRepository, logger *slog.Logger) *GalleryService {
	return &GalleryService{
		public: public,
		logger: logger,
		now:    time.Now,
	}
}

// TogglePublicity publishes logo if it is not in the gallery and removes it
// otherwise, returning the new state. Ownership must be checked by the
// caller.
func (s *GalleryService) TogglePublicity(ctx context.Context, logo *model.Logo) (model.Visibility, error) {
	exists, err := s.public.PublicLogoExists(ctx, logo.ID)
	if err != nil {
		return "", fmt.Errorf("checking gallery: %w", err)
	}

	if exists {
		if err := s.public.DeletePublicLogo(ctx, logo.ID); err != nil {
			return "", fmt.Errorf("unpublishing logo: %w", err)
		}
		s.logger.Info("logo unpublished", slog.String("logo_id", logo.ID))
		return model.VisibilityPrivate, nil
	}

	snapshot := &model.PublicLogo{Logo: *logo, PublishedAt: s.now()}
	if err := s.public.InsertPublicLogo(ctx, snapshot); err != nil {
		return "", fmt.Errorf("publishing logo: %w", err)
	}
	s.logger.Info("logo published", slog.String("logo_id", logo.ID))
	return model.VisibilityPublic, nil
}

// PublicLogos lists the gallery, newest first.
func (s *GalleryService) PublicLogos(ctx context.Context) ([]model.PublicLogo, error) {
	logos, err := s.public.ListPublicLogos(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing public logos: %w", err)
	}
	return logos, nil
}
