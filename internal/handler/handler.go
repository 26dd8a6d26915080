// Package handler exposes the storefront session over HTTP: catalog
// browsing, the cart, checkout and the product editor.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/editor"
)

// Handler wires the domain components to their HTTP endpoints.
type Handler struct {
	catalog  catalog.Client
	store    *cart.Store
	view     *cart.Controller
	checkout *checkout.Service
	editors  *editor.Registry
}

// New constructs a Handler with the required domain dependencies.
func New(
	client catalog.Client,
	store *cart.Store,
	view *cart.Controller,
	checkoutSvc *checkout.Service,
	editors *editor.Registry,
) *Handler {
	return &Handler{
		catalog:  client,
		store:    store,
		view:     view,
		checkout: checkoutSvc,
		editors:  editors,
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.ListProducts)
	mux.HandleFunc("GET /products/{id}", h.GetProduct)

	mux.HandleFunc("GET /cart", h.GetCart)
	mux.HandleFunc("POST /cart/items", h.AddToCart)
	mux.HandleFunc("POST /cart/items/{id}/increase", h.IncreaseQuantity)
	mux.HandleFunc("POST /cart/items/{id}/decrease", h.DecreaseQuantity)
	mux.HandleFunc("DELETE /cart/items/{id}", h.RemoveFromCart)
	mux.HandleFunc("DELETE /cart", h.ClearCart)
	mux.HandleFunc("POST /checkout", h.Checkout)

	mux.HandleFunc("POST /editor/{id}", h.LoadEditor)
	mux.HandleFunc("GET /editor/{id}", h.GetDraft)
	mux.HandleFunc("PATCH /editor/{id}", h.EditField)
	mux.HandleFunc("PUT /editor/{id}/image", h.StageImage)
	mux.HandleFunc("POST /editor/{id}/submit", h.SubmitDraft)
	mux.HandleFunc("DELETE /editor/{id}", h.DiscardDraft)
}

// errorResponse is the JSON error envelope shared by every endpoint.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}
