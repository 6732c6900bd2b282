package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/server/middleware"
	"github.com/teilomillet/quill/server/store"
)

const maxSaveBytes = 1 << 20

// StoreHandler serves /save and /data.
type StoreHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewStoreHandler creates a StoreHandler.
func NewStoreHandler(s store.Store, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{store: s, logger: logger}
}

type saveResponse struct {
	Status string          `json:"status"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data"`
}

type dataResponse struct {
	Status string            `json:"status"`
	Data   []json.RawMessage `json:"data"`
}

// Save stores the JSON body as sent.
func (h *StoreHandler) Save(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSaveBytes+1))
	if err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID, "Failed to read request body", nil))
		return
	}
	if len(body) > maxSaveBytes {
		errors.WriteError(w, errors.NewValidationError(requestID, "Request body too large", map[string]interface{}{
			"max_bytes": maxSaveBytes,
		}))
		return
	}
	if !json.Valid(body) {
		errors.WriteError(w, errors.NewValidationError(requestID, "Invalid request format", map[string]interface{}{
			"body": "must be valid JSON",
		}))
		return
	}

	entry, err := h.store.Save(r.Context(), body)
	if err != nil {
		qe := errors.NewInternalError(requestID, err)
		errors.LogError(h.logger, qe, requestID)
		errors.WriteError(w, qe)
		return
	}

	h.logger.Debug("payload saved", zap.String("request_id", requestID), zap.String("id", entry.ID))
	writeJSON(w, h.logger, http.StatusOK, saveResponse{Status: "success", ID: entry.ID, Data: entry.Data})
}

// Data lists the saved payloads in insertion order.
func (h *StoreHandler) Data(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	entries, err := h.store.List(r.Context())
	if err != nil {
		qe := errors.NewInternalError(requestID, err)
		errors.LogError(h.logger, qe, requestID)
		errors.WriteError(w, qe)
		return
	}

	data := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		data[i] = e.Data
	}
	writeJSON(w, h.logger, http.StatusOK, dataResponse{Status: "success", Data: data})
}
