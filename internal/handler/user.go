package handler

import (
	"errors"
	"net/http"

	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/service"
)

// UserHandler handles HTTP requests for accounts and tokens.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// HandleCreate handles POST /api/v1/user/create requests.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleToken handles POST /api/v1/user/token requests.
func (h *UserHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /api/v1/user/me requests.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, service.ErrUserNotFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
