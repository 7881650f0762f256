package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/focusd/focusd/internal/models"
)

type categoryView struct {
	models.Category
	Apps []string `json:"apps"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		apps, err := h.repo.CategoryApps(r.Context(), c.ID)
		if err != nil {
			h.serverError(w, err)
			return
		}
		if apps == nil {
			apps = []string{}
		}
		views = append(views, categoryView{Category: c, Apps: apps})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCategoryUsage(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func() (int, []byte, string, error) {
		report, err := h.reporter.GenerateCategoryReport(r.Context(), period(r))
		if err != nil {
			return http.StatusBadRequest, nil, "", err
		}

		if r.URL.Query().Get("format") == "text" {
			return http.StatusOK, []byte(h.reporter.FormatCategoriesText(report)), "text/plain; charset=utf-8", nil
		}
		body, err := json.Marshal(report)
		return http.StatusOK, body, "application/json", err
	})
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid body"))
		return
	}

	c := &models.Category{Name: req.Name, Icon: req.Icon, Color: req.Color}
	if _, err := h.repo.CreateCategory(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid body"))
		return
	}

	c := &models.Category{ID: id, Name: req.Name, Icon: req.Icon, Color: req.Color}
	if err := h.repo.UpdateCategory(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()

	saved, err := h.repo.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddCategoryApp(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	app := chi.URLParam(r, "app")
	if err := h.repo.AddAppToCategory(r.Context(), app, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	respondJSON(w, http.StatusOK, map[string]interface{}{"category_id": id, "app_identifier": app})
}

func (h *Handler) handleRemoveCategoryApp(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	if err := h.repo.RemoveAppFromCategory(r.Context(), chi.URLParam(r, "app"), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func categoryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, errors.New("invalid category id"))
		return 0, false
	}
	return uint(id), true
}
