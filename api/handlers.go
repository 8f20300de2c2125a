package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"car-scraper/storage"
	"car-scraper/utils"
)

// DefaultLimit is the number of listings returned when no limit is given.
const DefaultLimit = 10

// ListingHandler serves read-only views of the record store.
type ListingHandler struct {
	store  storage.ListingStore
	logger *utils.Logger
}

func NewListingHandler(store storage.ListingStore, logger *utils.Logger) *ListingHandler {
	return &ListingHandler{store: store, logger: logger}
}

// RegisterRoutes mounts the listing endpoints on r.
func (h *ListingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/listings", h.HandleRecent).Methods(http.MethodGet)
	r.HandleFunc("/listings/count", h.HandleCount).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}", h.HandleGet).Methods(http.MethodGet)
}

// HandleRecent returns the most recently scraped listings, newest first.
func (h *ListingHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	listings, err := h.store.ScanRecent(limit)
	if err != nil {
		h.logger.Error("[api] scan recent: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read listings")
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count()
	if err != nil {
		h.logger.Error("[api] count: %v", err)
		writeError(w, http.StatusInternalServerError, "could not count listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *ListingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	listing, err := h.store.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if err != nil {
		h.logger.Error("[api] get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not read listing")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
