package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

type CatalogHandler struct {
	*Responder
	catalog *service.CatalogService
}

func NewCatalogHandler(rs *Responder, catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{Responder: rs, catalog: catalog}
}

// HandleList renders the product listing.
//
// HTTP: GET /
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	h.render(w, r, http.StatusOK, view.Page{Name: view.PageCatalog, Title: "Products", Data: products})
}

// HandleProduct renders one product with its quote form.
//
// HTTP: GET /products/{slug}
func (h *CatalogHandler) HandleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	h.render(w, r, http.StatusOK, view.Page{Name: view.PageProduct, Title: product.Name, Data: product})
}
