package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/notefeed/apiserver/internal/services"
	"github.com/notefeed/apiserver/internal/store"
)

// CategoryHandler exposes category creation and in-place modification.
// Both operations trigger the notification fan-out engine.
type CategoryHandler struct {
	userService     *services.UserService
	categoryService *services.CategoryService
}

// NewCategoryHandler constructs a CategoryHandler with the provided dependencies.
func NewCategoryHandler(userService *services.UserService, categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		userService:     userService,
		categoryService: categoryService,
	}
}

// CategoryRouter registers category routes on the given router. All
// routes require authentication.
func CategoryRouter(r chi.Router, handler *CategoryHandler) {
	r.Post("/add", handler.AddCategory)
	r.Post("/mod", handler.ModCategory)
}

// AddCategory creates a category for the user named in the request body
// and notifies that user's followers.
func (h *CategoryHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req AddCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "Username is required.")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "Category name is required.")
		return
	}

	owner, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, kindNotFound, "User not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to load user")
		return
	}

	created, err := h.categoryService.Create(r.Context(), owner, req.Name, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrNameRequired) {
			writeError(w, http.StatusBadRequest, kindInvalidInput, "Category name is required.")
			return
		}
		writeError(w, http.StatusInternalServerError, kindInternal, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, CategoryResponse{
		Message: "Category added successfully.",
		Category: CategoryEntry{
			ID:      created.ID,
			Name:    created.Name,
			Content: created.Content,
		},
	})
}

// ModCategory replaces a category's name and content and notifies the
// owner's followers.
func (h *CategoryHandler) ModCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r.Context(), h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
		return
	}

	var req ModCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "invalid request")
		return
	}

	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "Category ID is required.")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, kindInvalidInput, "Category name is required.")
		return
	}

	updated, err := h.categoryService.Update(r.Context(), actor, req.ID, req.Name, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, kindNotFound, "Category not found.")
		case errors.Is(err, services.ErrNameRequired):
			writeError(w, http.StatusBadRequest, kindInvalidInput, "Category name is required.")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, kindForbidden, "You do not have permission to edit this category.")
		default:
			writeError(w, http.StatusInternalServerError, kindInternal, "failed to update category")
		}
		return
	}

	writeJSON(w, http.StatusOK, CategoryResponse{
		Message: "Category updated successfully.",
		Category: CategoryEntry{
			ID:      updated.ID,
			Name:    updated.Name,
			Content: updated.Content,
		},
	})
}

type AddCategoryRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Content  string `json:"content"`
}

type ModCategoryRequest struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type CategoryResponse struct {
	Message  string        `json:"message"`
	Category CategoryEntry `json:"category"`
}
