package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/service"
)

const multipartMemory = 8 << 20

// DrugHandler handles HTTP requests for drug operations.
type DrugHandler struct {
	service   *service.DrugService
	maxUpload int64
}

// NewDrugHandler creates a new DrugHandler. maxUpload caps the image upload body.
func NewDrugHandler(svc *service.DrugService, maxUpload int64) *DrugHandler {
	return &DrugHandler{service: svc, maxUpload: maxUpload}
}

// HandleList handles GET /api/v1/drug/drugs requests, optionally filtered by
// ?tags=1,2 and ?ingredients=3.
func (h *DrugHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	ve := &service.ValidationError{}

	tagIDs, err := parseIDList(query.Get("tags"))
	if err != nil {
		ve.Add("tags", err)
	}
	ingredientIDs, err := parseIDList(query.Get("ingredients"))
	if err != nil {
		ve.Add("ingredients", err)
	}
	if err := ve.OrNil(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := h.service.List(r.Context(), userID, model.DrugFilter{TagIDs: tagIDs, IngredientIDs: ingredientIDs})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /api/v1/drug/drugs requests.
func (h *DrugHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.DrugRequest
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

// HandleGet handles GET /api/v1/drug/drugs/{id} requests.
func (h *DrugHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err, service.ErrDrugNotFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleReplace handles PUT /api/v1/drug/drugs/{id} requests.
func (h *DrugHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.FullUpdate)
}

// HandlePatch handles PATCH /api/v1/drug/drugs/{id} requests.
func (h *DrugHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.PartialUpdate)
}

func (h *DrugHandler) update(w http.ResponseWriter, r *http.Request, mode model.UpdateMode) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.DrugRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, req, mode)
	if err != nil {
		writeServiceError(w, r, err, service.ErrDrugNotFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /api/v1/drug/drugs/{id} requests.
func (h *DrugHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, service.ErrDrugNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage handles POST /api/v1/drug/drugs/{id}/upload-image
// requests carrying a multipart "image" file.
func (h *DrugHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid multipart body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		ve := &service.ValidationError{}
		ve.Add("image", service.ErrImageRequired)
		writeServiceError(w, r, ve)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := h.service.SetImage(r.Context(), userID, id, header.Filename, data)
	if err != nil {
		writeServiceError(w, r, err, service.ErrDrugNotFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
