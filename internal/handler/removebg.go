package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/service"
)

type RemoveBGHandler struct {
	remover *service.BackgroundRemover
	logger  *slog.Logger
}

func NewRemoveBGHandler(remover *service.BackgroundRemover, logger *slog.Logger) *RemoveBGHandler {
	return &RemoveBGHandler{remover: remover, logger: logger}
}

// HandleRemoveBackground relays a multipart "file" upload to the background
// removal service and streams its answer back unchanged.
//
// HTTP: POST /api/remove-background
func (h *RemoveBGHandler) HandleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	if _, err := identity(r); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Room for the multipart framing around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, apperror.ValidationFailed("file", "file must be 10MB or less"))
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed("file", "file is required"))
		return
	}
	defer file.Close()

	out, err := h.remover.Remove(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	contentType := out.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		h.logger.Warn("writing removed background", slog.String("error", err.Error()))
	}
}
