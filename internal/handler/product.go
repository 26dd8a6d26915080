package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// includeImage reads the includeImage query flag, defaulting to false.
func includeImage(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("includeImage"))
	return err == nil && v
}

// ListProducts proxies the remote catalog listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.List(r.Context(), includeImage(r))
	if err != nil {
		h.catalogError(w, r, err)
		return
	}
	if records == nil {
		records = []catalog.ProductRecord{}
	}
	writeJSON(w, r, http.StatusOK, records)
}

// GetProduct proxies a single remote catalog record.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	record, err := h.catalog.Get(r.Context(), r.PathValue("id"), includeImage(r))
	if err != nil {
		h.catalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

// catalogError maps remote catalog errors to HTTP statuses: 404 for a
// missing record, 502 for transport failures, and the remote's own status
// for validation rejections.
func (h *Handler) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "product not found")
		return
	}

	var vErr *catalog.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, r, vErr.Status, vErr.Message)
		return
	}

	var nErr *catalog.NetworkError
	if errors.As(err, &nErr) {
		zctx.From(r.Context()).Error("catalog unreachable", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "catalog unavailable")
		return
	}

	zctx.From(r.Context()).Error("catalog request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
