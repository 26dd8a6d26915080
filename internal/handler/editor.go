package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/editor"
)

// maxImageBytes caps staged image uploads at 8 MiB.
const maxImageBytes = 8 << 20

// draftResponse is the editor's view of its state.
type draftResponse struct {
	Draft catalog.ProductRecord `json:"draft"`
	Dirty bool                  `json:"dirty"`
}

// LoadEditor fetches the product and establishes the snapshot/draft pair.
// Reloading an id discards any previous draft.
func (h *Handler) LoadEditor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ed := h.editors.Get(id)
	if err := ed.Load(r.Context(), id); err != nil {
		h.catalogError(w, r, err)
		return
	}
	h.writeDraft(w, r, ed)
}

// GetDraft returns the current draft and whether it differs from the
// loaded snapshot.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editors.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "no draft loaded")
		return
	}
	h.writeDraft(w, r, ed)
}

// EditField applies one field edit to the draft.
func (h *Handler) EditField(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editors.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "no draft loaded")
		return
	}

	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Field == "" {
		writeError(w, r, http.StatusBadRequest, "field and value required")
		return
	}

	if err := ed.EditField(req.Field, req.Value); err != nil {
		h.editorError(w, r, err)
		return
	}
	h.writeDraft(w, r, ed)
}

// StageImage stages the raw request body as the replacement image. The
// Content-Type header tags the binary; X-Image-Name optionally names it.
func (h *Handler) StageImage(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editors.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "no draft loaded")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read image")
		return
	}
	if len(data) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty image")
		return
	}
	if len(data) > maxImageBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	if err := ed.StageImage(data, r.Header.Get("Content-Type"), r.Header.Get("X-Image-Name")); err != nil {
		h.editorError(w, r, err)
		return
	}
	h.writeDraft(w, r, ed)
}

// SubmitDraft submits the dirty draft as a multipart update. A clean draft
// is rejected before any network call.
func (h *Handler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	ed, ok := h.editors.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "no draft loaded")
		return
	}

	updated, err := ed.Submit(r.Context())
	if err != nil {
		h.editorError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

// DiscardDraft drops the editor and its draft. The next load starts fresh.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	h.editors.Release(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeDraft(w http.ResponseWriter, r *http.Request, ed *editor.Editor) {
	draft, dirty, err := ed.Draft()
	if err != nil {
		h.editorError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, draftResponse{Draft: draft, Dirty: dirty})
}

func (h *Handler) editorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, editor.ErrNoChange):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, editor.ErrNotLoaded):
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, editor.ErrSubmitInProgress):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	var ufErr *editor.UnknownFieldError
	if errors.As(err, &ufErr) {
		writeError(w, r, http.StatusBadRequest, ufErr.Error())
		return
	}
	var fvErr *editor.FieldValueError
	if errors.As(err, &fvErr) {
		writeError(w, r, http.StatusBadRequest, fvErr.Error())
		return
	}

	// Submit failures bubble up remote catalog errors.
	h.catalogError(w, r, err)
}
