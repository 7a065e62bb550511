package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/menu-catalog/internal/common"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Register mounts every catalog route on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/create", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Get("/getByName/{name}", h.CategoriesByName)
		r.Put("/update/{id}", h.UpdateCategory)
		r.Get("/{id}", h.GetCategory)
	})
	r.Route("/subcategories", func(r chi.Router) {
		r.Post("/create/{categoryId}", h.CreateSubCategory)
		r.Get("/", h.ListSubCategories)
		r.Get("/category/{categoryId}", h.SubCategoriesByCategory)
		r.Get("/getByName/{name}", h.SubCategoriesByName)
		r.Put("/update/{id}", h.UpdateSubCategory)
		r.Get("/{id}", h.GetSubCategory)
	})
	r.Route("/items", func(r chi.Router) {
		r.Post("/create/subcategory/{subcategoryId}", h.CreateItemInSubCategory)
		r.Post("/create/category/{categoryId}", h.CreateItemInCategory)
		r.Get("/", h.ListItems)
		r.Get("/category/{categoryId}", h.ItemsByCategory)
		r.Get("/subcategory/{subcategoryId}", h.ItemsBySubCategory)
		r.Get("/getByName/{name}", h.ItemsByName)
		r.Put("/update/{id}", h.UpdateItem)
		r.Get("/{id}", h.GetItem)
	})
}

// CreateCategory handles POST /categories/create.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CategoryInput
	if !decode(w, r, &in) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), in)
	respond(w, http.StatusCreated, created, err)
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListCategories(r.Context())
	respond(w, http.StatusOK, rows, err)
}

// GetCategory handles GET /categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	category, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "id"))
	respond(w, http.StatusOK, category, err)
}

// CategoriesByName handles GET /categories/getByName/{name}.
func (h *Handler) CategoriesByName(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.FindCategoriesByName(r.Context(), chi.URLParam(r, "name"))
	respond(w, http.StatusOK, rows, err)
}

// UpdateCategory handles PUT /categories/update/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CategoryInput
	if !decode(w, r, &in) {
		return
	}
	updated, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, updated, err)
}

// CreateSubCategory handles POST /subcategories/create/{categoryId}.
func (h *Handler) CreateSubCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in SubCategoryInput
	if !decode(w, r, &in) {
		return
	}
	created, err := h.service.CreateSubCategory(r.Context(), chi.URLParam(r, "categoryId"), in)
	respond(w, http.StatusCreated, created, err)
}

// ListSubCategories handles GET /subcategories.
func (h *Handler) ListSubCategories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListSubCategories(r.Context())
	respond(w, http.StatusOK, rows, err)
}

// SubCategoriesByCategory handles GET /subcategories/category/{categoryId}.
func (h *Handler) SubCategoriesByCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListSubCategoriesByCategory(r.Context(), chi.URLParam(r, "categoryId"))
	respond(w, http.StatusOK, rows, err)
}

// GetSubCategory handles GET /subcategories/{id}.
func (h *Handler) GetSubCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sub, err := h.service.GetSubCategory(r.Context(), chi.URLParam(r, "id"))
	respond(w, http.StatusOK, sub, err)
}

// SubCategoriesByName handles GET /subcategories/getByName/{name}.
func (h *Handler) SubCategoriesByName(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.FindSubCategoriesByName(r.Context(), chi.URLParam(r, "name"))
	respond(w, http.StatusOK, rows, err)
}

// UpdateSubCategory handles PUT /subcategories/update/{id}.
func (h *Handler) UpdateSubCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in SubCategoryInput
	if !decode(w, r, &in) {
		return
	}
	updated, err := h.service.UpdateSubCategory(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, updated, err)
}

// CreateItemInSubCategory handles POST /items/create/subcategory/{subcategoryId}.
func (h *Handler) CreateItemInSubCategory(w http.ResponseWriter, r *http.Request) {
	h.createItem(w, r, ItemParent{SubCategoryID: chi.URLParam(r, "subcategoryId")})
}

// CreateItemInCategory handles POST /items/create/category/{categoryId}.
func (h *Handler) CreateItemInCategory(w http.ResponseWriter, r *http.Request) {
	h.createItem(w, r, ItemParent{CategoryID: chi.URLParam(r, "categoryId")})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request, parent ItemParent) {
	if !h.ready(w) {
		return
	}
	var in ItemInput
	if !decode(w, r, &in) {
		return
	}
	created, err := h.service.CreateItem(r.Context(), parent, in)
	respond(w, http.StatusCreated, created, err)
}

// ListItems handles GET /items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListItems(r.Context())
	respond(w, http.StatusOK, rows, err)
}

// ItemsByCategory handles GET /items/category/{categoryId}.
func (h *Handler) ItemsByCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListItemsByCategory(r.Context(), chi.URLParam(r, "categoryId"))
	respond(w, http.StatusOK, rows, err)
}

// ItemsBySubCategory handles GET /items/subcategory/{subcategoryId}.
func (h *Handler) ItemsBySubCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListItemsBySubCategory(r.Context(), chi.URLParam(r, "subcategoryId"))
	respond(w, http.StatusOK, rows, err)
}

// GetItem handles GET /items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	respond(w, http.StatusOK, item, err)
}

// ItemsByName handles GET /items/getByName/{name}.
func (h *Handler) ItemsByName(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.FindItemsByName(r.Context(), chi.URLParam(r, "name"))
	respond(w, http.StatusOK, rows, err)
}

// UpdateItem handles PUT /items/update/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ItemInput
	if !decode(w, r, &in) {
		return
	}
	updated, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, updated, err)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "catalog service not configured")
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, status, v)
}
