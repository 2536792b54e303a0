package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ailogo/internal/service"
)

type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleUserInfo returns the caller's profile and credit balance, creating
// the account on first use.
//
// HTTP: POST /api/get-user-info
func (h *UserHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	info, err := h.users.UserInfo(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, info)
}
