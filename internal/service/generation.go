package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/generator"
	"github.com/sakif/ailogo/internal/imaging"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/queue"
	"github.com/sakif/ailogo/internal/repository"
	"github.com/sakif/ailogo/internal/storage"
)

const promptTemplate = `A full-color illustration about %s,
  in emoji/icon/logo style,
  the main object should fill most of the frame,
  the background color should be either white/grey/black.
`

// FormatPrompt wraps a user description in the logo prompt.
func FormatPrompt(description string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(description))
}

// maxDownloadSize bounds generated images fetched by URL.
const maxDownloadSize = 32 << 20

// finalizeTimeout bounds the status write after an attempt, which runs even
// if the job context was cancelled.
const finalizeTimeout = 10 * time.Second

// MockupKey is the storage key of a logo rendered on a template.
func MockupKey(logoID, template string) string {
	return "logos/" + logoID + "_" + template + ".png"
}

// GenerationRunner executes queued attempts: generate, store the original
// and its mockups, then record the outcome. It implements worker.Handler.
type GenerationRunner struct {
	logos     repository.LogoRepository
	generator generator.Generator
	store     storage.Store
	templates []imaging.Template
	client    *http.Client
	logger    *slog.Logger
}

func NewGenerationRunner(
	logos repository.LogoRepository,
	gen generator.Generator,
	store storage.Store,
	templates []imaging.Template,
	client *http.Client,
	logger *slog.Logger,
) *GenerationRunner {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &GenerationRunner{
		logos:     logos,
		generator: gen,
		store:     store,
		templates: templates,
		client:    client,
		logger:    logger,
	}
}

// Handle runs job. Jobs whose record moved on (regenerated, expired, or
// already finalized) are dropped. Generation failures are recorded on the
// logo and not returned; the returned error means the outcome could not be
// recorded.
func (r *GenerationRunner) Handle(ctx context.Context, job queue.Job) error {
	logo, err := r.logos.GetLogo(ctx, job.UserID, job.LogoID)
	if errors.Is(err, apperror.ErrNotFound) {
		r.logger.Warn("dropping job for missing logo", slog.String("logo_id", job.LogoID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading logo %s: %w", job.LogoID, err)
	}
	if logo.Version != job.Version || logo.Status != model.LogoGenerating {
		r.logger.Info("dropping superseded job",
			slog.String("logo_id", job.LogoID),
			slog.Int64("job_version", job.Version),
			slog.Int64("logo_version", logo.Version),
			slog.String("status", string(logo.Status)),
		)
		return nil
	}

	start := time.Now()
	genErr := r.produce(ctx, logo)
	if genErr != nil {
		r.logger.Error("logo generation failed",
			slog.String("logo_id", logo.ID),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", genErr.Error()),
		)
		logo.Status = model.LogoFailed
		logo.ImageURL = ""
	} else {
		logo.Status = model.LogoSuccess
		logo.ImageURL = r.store.URL(logo.ImagePath)
	}

	return r.finalize(ctx, logo, time.Since(start))
}

// produce generates the image and uploads the original plus one mockup per
// template. All uploads complete before it returns nil.
func (r *GenerationRunner) produce(ctx context.Context, logo *model.Logo) error {
	img, err := r.generator.Generate(ctx, generator.Request{
		Prompt:  FormatPrompt(logo.Description),
		Model:   logo.Model,
		Size:    logo.Size,
		Quality: logo.Quality,
		Style:   logo.Style,
	})
	if err != nil {
		return fmt.Errorf("generating image: %w", err)
	}

	data := img.Data
	if len(data) == 0 {
		if img.URL == "" {
			return errors.New("generator returned no image")
		}
		if data, err = r.download(ctx, img.URL); err != nil {
			return err
		}
	}

	decoded, err := imaging.Decode(data)
	if err != nil {
		return err
	}
	original, err := imaging.EncodePNG(decoded)
	if err != nil {
		return err
	}

	mockups, err := imaging.CompositeAll(ctx, r.templates, decoded)
	if err != nil {
		return fmt.Errorf("rendering mockups: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.put(gctx, logo.ImagePath, original)
	})
	for _, m := range mockups {
		g.Go(func() error {
			return r.put(gctx, MockupKey(logo.ID, m.Template), m.Data)
		})
	}
	return g.Wait()
}

func (r *GenerationRunner) put(ctx context.Context, key string, data []byte) error {
	if err := r.store.Put(ctx, key, data, storage.ContentTypeForKey(key)); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (r *GenerationRunner) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	return data, nil
}

// finalize records the outcome. A version conflict means the attempt was
// superseded (expired by a poll or regenerated) and its outcome is dropped.
func (r *GenerationRunner) finalize(ctx context.Context, logo *model.Logo, elapsed time.Duration) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	err := r.logos.UpdateLogoStatus(ctx, logo)
	if errors.Is(err, apperror.ErrConflict) {
		r.logger.Warn("discarding superseded generation result",
			slog.String("logo_id", logo.ID),
			slog.String("status", string(logo.Status)),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finalizing logo %s: %w", logo.ID, err)
	}

	r.logger.Info("logo generation finished",
		slog.String("logo_id", logo.ID),
		slog.String("status", string(logo.Status)),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}
