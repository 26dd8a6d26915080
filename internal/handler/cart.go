package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
)

// cartResponse renders the working copy. Empty is explicit: an empty cart
// is its own state, not a zero-length list the client has to interpret.
type cartResponse struct {
	Items []cart.LineItem `json:"items"`
	Total decimal.Decimal `json:"total"`
	Empty bool            `json:"empty"`
}

func (h *Handler) cartResponse() cartResponse {
	items := h.view.Items()
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartResponse{
		Items: items,
		Total: h.view.Total(),
		Empty: h.view.Empty(),
	}
}

// GetCart returns the working copy with its running total.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// AddToCart fetches the product from the catalog and adds it to the cart,
// snapshotting its current stock and price.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "productId required")
		return
	}

	record, err := h.catalog.Get(r.Context(), req.ProductID, false)
	if err != nil {
		h.catalogError(w, r, err)
		return
	}

	if err := h.store.Add(*record); err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// IncreaseQuantity bumps a line item's quantity, bounded by its stock
// snapshot.
func (h *Handler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	if err := h.view.IncreaseQuantity(r.PathValue("id")); err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// DecreaseQuantity lowers a line item's quantity, flooring at one.
func (h *Handler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	if err := h.view.DecreaseQuantity(r.PathValue("id")); err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// RemoveFromCart removes a line item entirely.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.view.RemoveItem(r.PathValue("id"))
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.view.Clear()
	writeJSON(w, r, http.StatusOK, h.cartResponse())
}

// checkoutResponse reports which stock decrements were written.
type checkoutResponse struct {
	Applied []string `json:"applied"`
	Units   int      `json:"units"`
}

// checkoutFailure distinguishes a partial failure from a plain error: the
// applied list tells the caller exactly which decrements already landed.
type checkoutFailure struct {
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	Applied  []string `json:"applied"`
	FailedID string   `json:"failedId"`
}

// Checkout runs the sequential stock-decrement sequence for the whole cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.Checkout(r.Context())
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, checkoutResponse{
		Applied: result.Applied,
		Units:   result.Units,
	})
}

func (h *Handler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, checkout.ErrInProgress):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	var pfErr *checkout.PartialFailureError
	if errors.As(err, &pfErr) {
		applied := pfErr.Applied
		if applied == nil {
			applied = []string{}
		}
		writeJSON(w, r, http.StatusBadGateway, checkoutFailure{
			Code:     http.StatusBadGateway,
			Message:  pfErr.Error(),
			Applied:  applied,
			FailedID: pfErr.FailedID,
		})
		return
	}

	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func (h *Handler) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrStockExceeded):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
