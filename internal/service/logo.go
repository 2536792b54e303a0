package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/queue"
	"github.com/sakif/ailogo/internal/repository"
)

const MaxDescriptionLength = 1000

// AllowedSizes are the sizes the image backend accepts.
var AllowedSizes = []string{"1024x1024", "1792x1024", "1024x1792"}

type GenerationConfig struct {
	DefaultModel   string
	DefaultSize    string
	DefaultQuality string
	DefaultStyle   string

	// Timeout after which a generating logo is considered stale.
	Timeout time.Duration
	// PollInterval is the status polling interval advertised to clients.
	PollInterval time.Duration
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		DefaultModel:   "dall-e-3",
		DefaultSize:    "1024x1024",
		DefaultQuality: "hd",
		DefaultStyle:   "vivid",
		Timeout:        10 * time.Minute,
		PollInterval:   5 * time.Second,
	}
}

// GenerateRequest is a new generation. Empty optional fields take the
// configured defaults.
type GenerateRequest struct {
	Description string
	Model       string
	Size        string
	Quality     string
	Style       string
}

// LogoService drives the logo lifecycle: credit gating, record creation,
// handing work to the queue, status reads with staleness resolution, and
// publicity toggles on owned logos.
type LogoService struct {
	logos   repository.LogoRepository
	users   *UserService
	ledger  *CreditLedger
	gallery *GalleryService
	jobs    queue.Queue
	config  GenerationConfig
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewLogoService(
	logos repository.LogoRepository,
	users *UserService,
	ledger *CreditLedger,
	gallery *GalleryService,
	jobs queue.Queue,
	cfg GenerationConfig,
	logger *slog.Logger,
) *LogoService {
	return &LogoService{
		logos:   logos,
		users:   users,
		ledger:  ledger,
		gallery: gallery,
		jobs:    jobs,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// PollInterval is how often clients should poll a generating logo.
func (s *LogoService) PollInterval() time.Duration {
	return s.config.PollInterval
}

// ImagePath is the storage key of a logo's original image.
func ImagePath(logoID string) string {
	return "logos/" + logoID + ".png"
}

// Generate validates req, charges nothing yet, and records a new logo in
// generating state. The image is produced by a worker; the returned record
// is already persisted.
func (s *LogoService) Generate(ctx context.Context, id model.Identity, req GenerateRequest) (*model.Logo, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	user, err := s.users.EnsureUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("generating logo: %w", err)
	}
	if err := s.checkCredits(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	logoID := s.newID()
	logo := &model.Logo{
		ID:               logoID,
		UserID:           user.ID,
		UserEmail:        user.Email,
		Description:      req.Description,
		Model:            req.Model,
		Size:             req.Size,
		Quality:          req.Quality,
		Style:            req.Style,
		ImagePath:        ImagePath(logoID),
		Status:           model.LogoGenerating,
		CreatorNickname:  user.Login,
		CreatorAvatarURL: user.AvatarURL,
		CreatedAt:        now,
		StartedAt:        now,
	}
	if err := s.logos.CreateLogo(ctx, logo); err != nil {
		return nil, fmt.Errorf("generating logo: %w", err)
	}

	s.logger.Info("logo generation accepted",
		slog.String("logo_id", logo.ID),
		slog.String("user_id", user.ID),
		slog.String("model", logo.Model),
		slog.String("size", logo.Size),
	)

	s.dispatch(ctx, logo)
	return logo, nil
}

// Regenerate retries a failed logo in place: same id, same storage path.
// A logo that is still generating is returned unchanged; a successful one
// is rejected.
func (s *LogoService) Regenerate(ctx context.Context, id model.Identity, logoID string) (*model.Logo, error) {
	logoID = strings.TrimSpace(logoID)
	if logoID == "" {
		return nil, apperror.ValidationFailed("logo_id", "logo_id is required")
	}

	user, err := s.users.EnsureUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("regenerating logo: %w", err)
	}

	logo, err := s.load(ctx, user.ID, logoID)
	if err != nil {
		return nil, err
	}
	switch logo.Status {
	case model.LogoGenerating:
		return logo, nil
	case model.LogoSuccess:
		return nil, apperror.ValidationFailed("logo_id", "logo already generated")
	}

	if err := s.checkCredits(ctx, user); err != nil {
		return nil, err
	}

	logo.Status = model.LogoGenerating
	logo.ImageURL = ""
	logo.StartedAt = s.now()
	if err := s.logos.UpdateLogoStatus(ctx, logo); err != nil {
		return nil, fmt.Errorf("regenerating logo: %w", err)
	}

	s.logger.Info("logo regeneration accepted",
		slog.String("logo_id", logo.ID),
		slog.String("user_id", user.ID),
		slog.Int64("version", logo.Version),
	)

	s.dispatch(ctx, logo)
	return logo, nil
}

// CheckStatus returns the logo, first resolving a stale generating record
// to failed.
func (s *LogoService) CheckStatus(ctx context.Context, userID, logoID string) (*model.Logo, error) {
	logoID = strings.TrimSpace(logoID)
	if logoID == "" {
		return nil, apperror.ValidationFailed("logo_id", "logo_id is required")
	}
	return s.load(ctx, userID, logoID)
}

// ListUserLogos returns the caller's logos, newest first. Stale records in
// the list are resolved like in CheckStatus.
func (s *LogoService) ListUserLogos(ctx context.Context, userID string) ([]model.Logo, error) {
	logos, err := s.logos.ListUserLogos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing logos: %w", err)
	}
	for i := range logos {
		if err := s.resolveStale(ctx, &logos[i]); err != nil {
			return nil, err
		}
	}
	return logos, nil
}

// TogglePublicity flips gallery membership of one of the caller's logos.
// Logos of other users are reported as not found.
func (s *LogoService) TogglePublicity(ctx context.Context, userID, logoID string) (model.Visibility, error) {
	logoID = strings.TrimSpace(logoID)
	if logoID == "" {
		return "", apperror.ValidationFailed("logo_id", "logo_id is required")
	}
	logo, err := s.logos.GetLogo(ctx, userID, logoID)
	if err != nil {
		return "", err
	}
	return s.gallery.TogglePublicity(ctx, logo)
}

func (s *LogoService) load(ctx context.Context, userID, logoID string) (*model.Logo, error) {
	logo, err := s.logos.GetLogo(ctx, userID, logoID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveStale(ctx, logo); err != nil {
		return nil, err
	}
	return logo, nil
}

// resolveStale persists failed for a generating logo past the timeout. If
// a worker finalized it concurrently, the stored record wins and is
// reloaded into logo.
func (s *LogoService) resolveStale(ctx context.Context, logo *model.Logo) error {
	if !logo.Stale(s.now(), s.config.Timeout) {
		return nil
	}

	stale := *logo
	stale.Status = model.LogoFailed
	stale.ImageURL = ""
	err := s.logos.UpdateLogoStatus(ctx, &stale)
	if errors.Is(err, apperror.ErrConflict) {
		fresh, err := s.logos.GetLogo(ctx, logo.UserID, logo.ID)
		if err != nil {
			return err
		}
		*logo = *fresh
		return nil
	}
	if err != nil {
		return fmt.Errorf("expiring stale logo: %w", err)
	}

	s.logger.Warn("logo generation timed out",
		slog.String("logo_id", logo.ID),
		slog.Duration("timeout", s.config.Timeout),
	)
	*logo = stale
	return nil
}

func (s *LogoService) checkCredits(ctx context.Context, user *model.User) error {
	if user.SuperUser {
		return nil
	}
	// Checked without a reservation: concurrent requests can each pass
	// before either record exists.
	if credits := s.ledger.UserCredits(ctx, user.ID); credits.Left <= 0 {
		return apperror.InsufficientCredits()
	}
	return nil
}

// dispatch hands the attempt to the workers. If the queue rejects it the
// record is failed right away so the client can retry.
func (s *LogoService) dispatch(ctx context.Context, logo *model.Logo) {
	job := queue.Job{
		UserID:     logo.UserID,
		LogoID:     logo.ID,
		Version:    logo.Version,
		EnqueuedAt: s.now(),
	}
	err := s.jobs.Enqueue(ctx, job)
	if err == nil {
		return
	}

	s.logger.Error("enqueueing generation job",
		slog.String("logo_id", logo.ID),
		slog.String("error", err.Error()),
	)
	logo.Status = model.LogoFailed
	logo.ImageURL = ""
	if err := s.logos.UpdateLogoStatus(context.WithoutCancel(ctx), logo); err != nil {
		s.logger.Error("failing undispatched logo",
			slog.String("logo_id", logo.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LogoService) normalize(req GenerateRequest) (GenerateRequest, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return req, apperror.ValidationFailed("description", "description is required")
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return req, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	req.Model = orDefault(req.Model, s.config.DefaultModel)
	req.Size = orDefault(req.Size, s.config.DefaultSize)
	req.Quality = orDefault(req.Quality, s.config.DefaultQuality)
	req.Style = orDefault(req.Style, s.config.DefaultStyle)

	if !contains(AllowedSizes, req.Size) {
		return req, apperror.ValidationFailed("size",
			fmt.Sprintf("size must be one of %s", strings.Join(AllowedSizes, ", ")))
	}
	switch req.Style {
	case "vivid", "natural":
	default:
		return req, apperror.ValidationFailed("style", "style must be vivid or natural")
	}
	switch req.Quality {
	case "hd", "standard":
	default:
		return req, apperror.ValidationFailed("quality", "quality must be hd or standard")
	}
	return req, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
