package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/auth"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/service"
)

// LogoHandler serves the logo lifecycle endpoints. All of them are POST
// with a JSON body and answer with the envelope.
type LogoHandler struct {
	logos   *service.LogoService
	gallery *service.GalleryService
	logger  *slog.Logger
}

func NewLogoHandler(logos *service.LogoService, gallery *service.GalleryService, logger *slog.Logger) *LogoHandler {
	return &LogoHandler{logos: logos, gallery: gallery, logger: logger}
}

type generateRequest struct {
	Description string `json:"description"`
	Model       string `json:"model"`
	Size        string `json:"size"`
	Quality     string `json:"quality"`
	Style       string `json:"style"`
	// LogoID turns the call into a retry of that logo.
	LogoID string `json:"logo_id"`
}

type logoIDRequest struct {
	LogoID string `json:"logo_id"`
}

// logoResponse is a logo plus the interval clients should poll it at.
type logoResponse struct {
	*model.Logo
	PollIntervalMS int64 `json:"poll_interval_ms,omitempty"`
}

type toggleResponse struct {
	NewState model.Visibility `json:"new_state"`
}

// identity returns the caller set by auth.RequireAuth.
func identity(r *http.Request) (model.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return model.Identity{}, apperror.Unauthorized()
	}
	return id, nil
}

// HandleGenerate accepts a new generation and returns the record in
// generating state.
//
// HTTP: POST /api/generate-logo
func (h *LogoHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var logo *model.Logo
	if req.LogoID != "" {
		logo, err = h.logos.Regenerate(r.Context(), id, req.LogoID)
	} else {
		logo, err = h.logos.Generate(r.Context(), id, service.GenerateRequest{
			Description: req.Description,
			Model:       req.Model,
			Size:        req.Size,
			Quality:     req.Quality,
			Style:       req.Style,
		})
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, h.pollable(logo))
}

// HandleRegenerate retries a failed logo in place.
//
// HTTP: POST /api/regenerate-logo
func (h *LogoHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req logoIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	logo, err := h.logos.Regenerate(r.Context(), id, req.LogoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, h.pollable(logo))
}

// HandleCheckStatus is polled by clients until the logo leaves generating.
//
// HTTP: POST /api/check-logo-status
func (h *LogoHandler) HandleCheckStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req logoIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	logo, err := h.logos.CheckStatus(r.Context(), id.Subject, req.LogoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, h.pollable(logo))
}

// HandleTogglePublicity publishes or unpublishes one of the caller's logos.
//
// HTTP: POST /api/toggle-logo-publicity
func (h *LogoHandler) HandleTogglePublicity(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req logoIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	state, err := h.logos.TogglePublicity(r.Context(), id.Subject, req.LogoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, toggleResponse{NewState: state})
}

// HandleUserLogos lists the caller's logos, newest first.
//
// HTTP: POST /api/get-user-logos
func (h *LogoHandler) HandleUserLogos(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	logos, err := h.logos.ListUserLogos(r.Context(), id.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if logos == nil {
		logos = []model.Logo{}
	}
	writeOK(w, logos)
}

// HandlePublicLogos lists the gallery. No authentication.
//
// HTTP: POST /api/get-public-logos
func (h *LogoHandler) HandlePublicLogos(w http.ResponseWriter, r *http.Request) {
	logos, err := h.gallery.PublicLogos(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if logos == nil {
		logos = []model.PublicLogo{}
	}
	writeOK(w, logos)
}

func (h *LogoHandler) pollable(logo *model.Logo) logoResponse {
	resp := logoResponse{Logo: logo}
	if logo.Status == model.LogoGenerating {
		resp.PollIntervalMS = h.logos.PollInterval().Milliseconds()
	}
	return resp
}
