package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wordvault/wordvault/internal/api/middleware"
	"github.com/wordvault/wordvault/internal/api/shared"
	"github.com/wordvault/wordvault/internal/store"
)

// SyncHandler handles the record endpoints devices sync against.
type SyncHandler struct {
	records store.RecordStore
	logger  *slog.Logger
}

// NewSyncHandler creates a new SyncHandler with the given dependencies.
// If logger is nil, a default logger will be used.
func NewSyncHandler(records store.RecordStore, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncHandler{
		records: records,
		logger:  logger.With(slog.String("component", "sync_handler")),
	}
}

// requestScope pulls the authenticated user and the validated
// collection out of the request. It writes the error response itself
// when either is missing.
func (h *SyncHandler) requestScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, "", false
	}

	collection := chi.URLParam(r, "collection")
	if !store.ValidCollection(collection) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Unknown collection")
		return uuid.Nil, "", false
	}

	return userID, collection, true
}

// List handles GET /v1/sync/{collection}. Without a since parameter it
// returns the full collection; with one it returns only records
// updated strictly after that instant.
func (h *SyncHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, collection, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest,
				"Invalid since parameter, expected RFC 3339")
			return
		}
		since = parsed
	}

	var (
		records []store.SyncRecord
		err     error
	)
	if since.IsZero() {
		records, err = h.records.GetAll(r.Context(), userID, collection)
	} else {
		records, err = h.records.GetSince(r.Context(), userID, collection, since)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	// Records come back ordered by ascending updated_at, so the last
	// one is the client's next watermark.
	var latest time.Time
	if len(records) > 0 {
		latest = records[len(records)-1].UpdatedAt
	}
	if records == nil {
		records = []store.SyncRecord{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SyncResponse{
		Records:         records,
		LatestUpdatedAt: latest,
	})
}

// Upload handles POST /v1/sync/{collection}/batch. The batch is
// merged, not blindly written; see the record store for the rules.
func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, collection, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var req BatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	stamp, err := h.records.Upsert(r.Context(), userID, collection, req.Records)
	if err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid record data")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store records", err)
		return
	}

	h.logger.Debug("batch accepted",
		slog.String("collection", collection),
		slog.String("user_id", userID.String()),
		slog.Int("records", len(req.Records)))

	shared.RespondWithJSON(w, r, http.StatusOK, BatchResponse{LatestUpdatedAt: stamp})
}

// Remove handles DELETE /v1/sync/{collection}/{word}. Deleting an
// absent word succeeds, so retries are safe.
func (h *SyncHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, collection, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	word := chi.URLParam(r, "word")
	if word == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing word")
		return
	}

	if err := h.records.Delete(r.Context(), userID, collection, word); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete record", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Count handles GET /v1/sync/{collection}/count.
func (h *SyncHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, collection, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	count, err := h.records.Count(r.Context(), userID, collection)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to count records", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: count})
}
