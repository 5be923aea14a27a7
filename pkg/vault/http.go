package vault

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mhlabs/tokenvault/pkg/common/logger"
)

// Handler exposes the vault over HTTP. Wire contract: absence is 404,
// deletes are 204, a failed batch is a single 400 with an error body, and a
// find that trips the integrity check is a 500.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/token", h.handleCreateToken).Methods(http.MethodPost)
	r.HandleFunc("/token/find", h.handleFindToken).Methods(http.MethodPost)
	r.HandleFunc("/token/identifier/{identifier}/identity/{identity}/value/{value}/field/{field}", h.handleGetTokenByValueField).Methods(http.MethodGet)
	r.HandleFunc("/token/identifier/{identifier}/identity/{identity}/value/{value}", h.handleGetTokenByValue).Methods(http.MethodGet)
	r.HandleFunc("/token/value/{value}/identifier/{identifier}/identity/{identity}", h.handleDeleteTokenByValue).Methods(http.MethodDelete)
	r.HandleFunc("/token/{pk}", h.handleGetToken).Methods(http.MethodGet)
	r.HandleFunc("/token/{pk}", h.handleDeleteToken).Methods(http.MethodDelete)
	r.HandleFunc("/tokens/identifier/{identifier}/identity/{identity}", h.handleListTokens).Methods(http.MethodGet)
	r.HandleFunc("/tokens/identifier/{identifier}/identity/{identity}", h.handleDeleteTokens).Methods(http.MethodDelete)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req RemoteFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid batch request"})
		return
	}
	resp, err := h.service.ProcessBatch(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", req.RequestID).Error("batch processing failed")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if resp == nil {
		// unsupported action: absent response, not an error
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var tc TokenCreate
	if err := json.NewDecoder(r.Body).Decode(&tc); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if tc.Identifier == "" || tc.Identity == "" || tc.Value == "" {
		http.Error(w, "identifier, identity, and value are required", http.StatusBadRequest)
		return
	}
	token, err := h.service.CreateToken(r.Context(), tc)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create token")
		http.Error(w, "failed to create token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	h.respondToken(w, r, mux.Vars(r)["pk"])
}

func (h *Handler) handleGetTokenByValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pk := DerivePK(vars["identifier"], vars["identity"], vars["value"])
	h.respondToken(w, r, pk)
}

func (h *Handler) handleGetTokenByValueField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pk := DerivePK(vars["identifier"], vars["identity"], vars["value"], vars["field"])
	h.respondToken(w, r, pk)
}

func (h *Handler) respondToken(w http.ResponseWriter, r *http.Request, pk string) {
	token, err := h.service.GetToken(r.Context(), pk)
	if err != nil {
		logger.Log.WithError(err).Error("failed to get token")
		http.Error(w, "failed to get token", http.StatusInternalServerError)
		return
	}
	if token == nil {
		http.Error(w, "token not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) handleFindToken(w http.ResponseWriter, r *http.Request) {
	var tf TokenFind
	if err := json.NewDecoder(r.Body).Decode(&tf); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	token, err := h.service.FindToken(r.Context(), tf)
	if errors.Is(err, ErrIntegrity) {
		logger.Log.WithError(err).Error("token integrity violation")
		http.Error(w, "token integrity violation", http.StatusInternalServerError)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to find token")
		http.Error(w, "failed to find token", http.StatusInternalServerError)
		return
	}
	if token == nil {
		http.Error(w, "token not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokens, err := h.service.ListTokens(r.Context(), vars["identifier"], vars["identity"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to list tokens")
		http.Error(w, "failed to list tokens", http.StatusInternalServerError)
		return
	}
	if len(tokens) == 0 {
		http.Error(w, "tokens not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	h.deleteToken(w, r, mux.Vars(r)["pk"])
}

func (h *Handler) handleDeleteTokenByValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pk := DerivePK(vars["identifier"], vars["identity"], vars["value"])
	h.deleteToken(w, r, pk)
}

func (h *Handler) deleteToken(w http.ResponseWriter, r *http.Request, pk string) {
	token, err := h.service.GetToken(r.Context(), pk)
	if err != nil {
		logger.Log.WithError(err).Error("failed to get token")
		http.Error(w, "failed to delete token", http.StatusInternalServerError)
		return
	}
	if token == nil {
		http.Error(w, "token not found", http.StatusNotFound)
		return
	}
	if _, err := h.service.DeleteToken(r.Context(), pk); err != nil {
		logger.Log.WithError(err).Error("failed to delete token")
		http.Error(w, "failed to delete token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteTokens(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deleted, err := h.service.DeleteTokens(r.Context(), vars["identifier"], vars["identity"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to delete tokens")
		http.Error(w, "failed to delete tokens", http.StatusInternalServerError)
		return
	}
	if deleted == 0 {
		http.Error(w, "tokens not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
