package handler

import (
	"net/http"

	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/service"
)

// AttributeHandler handles HTTP requests for tags or ingredients.
type AttributeHandler struct {
	service  *service.AttributeService
	notFound error
}

// NewTagHandler creates an AttributeHandler serving tags.
func NewTagHandler(svc *service.AttributeService) *AttributeHandler {
	return &AttributeHandler{service: svc, notFound: service.ErrTagNotFound}
}

// NewIngredientHandler creates an AttributeHandler serving ingredients.
func NewIngredientHandler(svc *service.AttributeService) *AttributeHandler {
	return &AttributeHandler{service: svc, notFound: service.ErrIngredientNotFound}
}

// HandleList handles GET requests on the collection. ?assigned_only=1
// restricts the result to records linked to a drug.
func (h *AttributeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	assignedOnly, err := parseFlag(r.URL.Query().Get("assigned_only"))
	if err != nil {
		ve := &service.ValidationError{}
		ve.Add("assigned_only", err)
		writeServiceError(w, r, ve)
		return
	}

	resp, err := h.service.List(r.Context(), userID, model.AttributeFilter{AssignedOnly: assignedOnly})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST requests on the collection.
func (h *AttributeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.AttributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleUpdate handles PUT and PATCH requests on a single record.
func (h *AttributeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.AttributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE requests on a single record.
func (h *AttributeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, h.notFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
