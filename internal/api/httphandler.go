package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitenav/internal/favorites"
	"sitenav/internal/license"
	"sitenav/internal/resil"
	"sitenav/internal/settings"
	"sitenav/internal/sites"
	"sitenav/internal/types"
)

type Handler struct {
	Fetcher   *sites.Fetcher
	Validator *license.Validator
	Favorites *favorites.Service
	Settings  *settings.Service
}

func NewHandler(f *sites.Fetcher, v *license.Validator, fav *favorites.Service, set *settings.Service) *Handler {
	return &Handler{
		Fetcher:   f,
		Validator: v,
		Favorites: fav,
		Settings:  set,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sites", h.handleSites)
	mux.HandleFunc("/sites/refresh", h.handleSitesRefresh)
	mux.HandleFunc("/license", h.handleLicense)
	mux.HandleFunc("/license/refresh", h.handleLicenseRefresh)
	mux.HandleFunc("/favorites", h.handleFavorites)
	mux.HandleFunc("/settings", h.handleSettings)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (h *Handler) handleSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := h.Fetcher.GetSites(r.Context())
	if err != nil {
		writeCategorizedError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"sites": records}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleSitesRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.Fetcher.ClearCache()
	records, err := h.Fetcher.GetSites(r.Context())
	if err != nil {
		writeCategorizedError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"sites": records}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleLicense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Query().Get("quick") == "1" {
		status, ok := h.Validator.GetQuickCacheStatus(r.Context())
		if !ok {
			if err := writeJSON(w, http.StatusOK, map[string]any{"cached": false}); err != nil {
				http.Error(w, "failed to write response", http.StatusInternalServerError)
			}
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"cached": true, "status": status}); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
		return
	}
	status, err := h.Validator.GetLicenseStatus(r.Context(), false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"status": status}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleLicenseRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status, err := h.Validator.GetLicenseStatus(r.Context(), true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"status": status}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleFavorites(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(types.UserIDHdrName)
	if userID == "" {
		http.Error(w, "missing user header", http.StatusUnauthorized)
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		favs, err := h.Favorites.List(ctx, userID)
		if err != nil {
			http.Error(w, "failed to load favorites", http.StatusInternalServerError)
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"favorites": favs}); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	case http.MethodPut:
		var fav favorites.Favorite
		if err := readJSON(r, &fav); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		favs, err := h.Favorites.Add(ctx, userID, fav)
		if err != nil {
			if errors.Is(err, types.ErrInvalidRecord) {
				http.Error(w, err.Error(), http.StatusBadRequest)
			} else {
				http.Error(w, "failed to store favorite", http.StatusInternalServerError)
			}
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"favorites": favs}); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	case http.MethodDelete:
		id := r.URL.Query().Get("site_id")
		if id == "" {
			http.Error(w, "missing site_id", http.StatusBadRequest)
			return
		}
		favs, err := h.Favorites.Remove(ctx, userID, types.SiteID(id))
		if err != nil {
			http.Error(w, "failed to remove favorite", http.StatusInternalServerError)
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"favorites": favs}); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(types.UserIDHdrName)
	if userID == "" {
		http.Error(w, "missing user header", http.StatusUnauthorized)
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		n, err := h.Settings.Get(ctx, userID)
		if err != nil {
			http.Error(w, "failed to load settings", http.StatusInternalServerError)
			return
		}
		if err := writeJSON(w, http.StatusOK, n); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	case http.MethodPut:
		var n settings.NavSettings
		if err := readJSON(r, &n); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.Settings.Put(ctx, userID, n); err != nil {
			if errors.Is(err, types.ErrInvalidRecord) {
				http.Error(w, err.Error(), http.StatusBadRequest)
			} else {
				http.Error(w, "failed to store settings", http.StatusInternalServerError)
			}
			return
		}
		if err := writeJSON(w, http.StatusOK, n); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeCategorizedError maps the fetcher's failure categories to transport
// statuses: permission problems are the caller's to fix, network trouble is
// upstream unavailability, validation is an upstream contract break.
func writeCategorizedError(w http.ResponseWriter, err error) {
	switch resil.Classify(err) {
	case types.CategoryPermission:
		http.Error(w, err.Error(), http.StatusForbidden)
	case types.CategoryNetwork:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case types.CategoryValidation:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Body.Close()
	}()
	return json.Unmarshal(body, v)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
