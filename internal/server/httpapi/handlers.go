package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/cryptox"
	"github.com/avolkova/keepsafe/internal/server/auth"
	"github.com/avolkova/keepsafe/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, salt := cryptox.HashPassword([]byte(req.Password))
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		Salt:         salt,
		PasswordHash: hash,
	}

	if _, err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, common.ErrDuplicateAccount) {
			respondError(w, http.StatusConflict, "account already exists")
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.respondAuth(w, r, user, http.StatusCreated)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, common.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if !cryptox.VerifyPassword([]byte(req.Password), user.Salt, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.respondAuth(w, r, user, http.StatusOK)
}

func (h *Handler) respondAuth(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, err := auth.GenerateToken(user.ID, h.secretKey, h.tokenTTL)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	respondJSON(w, status, api.AuthResponse{
		AccessToken: token,
		User:        api.User{ID: user.ID, Email: user.Email, FullName: user.FullName},
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, common.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, api.User{ID: user.ID, Email: user.Email, FullName: user.FullName})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	table, ok := h.tableParam(w, r)
	if !ok {
		return
	}

	result, err := h.rows.List(r.Context(), userID, table)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	payload := make([]map[string]any, 0, len(result))
	for _, row := range result {
		doc, err := rowJSON(row)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		payload = append(payload, doc)
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	table, ok := h.tableParam(w, r)
	if !ok {
		return
	}

	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	row, err := rowFromJSON(doc, userID, table, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rows.Upsert(r.Context(), row); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	table, ok := h.tableParam(w, r)
	if !ok {
		return
	}

	var patch api.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	for _, k := range reservedKeys {
		delete(patch, k)
	}
	fields, err := json.Marshal(patch)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	err = h.rows.Update(r.Context(), userID, table, chi.URLParam(r, "id"), fields)
	if errors.Is(err, common.ErrNotFound) {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	table, ok := h.tableParam(w, r)
	if !ok {
		return
	}

	err := h.rows.Delete(r.Context(), userID, table, chi.URLParam(r, "id"))
	if errors.Is(err, common.ErrNotFound) {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tableParam(w http.ResponseWriter, r *http.Request) (api.Table, bool) {
	table, err := api.ParseTable(chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown table")
		return "", false
	}
	return table, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

// reservedKeys are the top-level record attributes that live in their own
// columns; everything else in a request body is free-form fields.
var reservedKeys = []string{"id", "user_id", "created_at", "updated_at"}

// rowJSON flattens a stored row into the wire shape: the fields document
// plus the column-backed attributes at the top level.
func rowJSON(row models.Row) (map[string]any, error) {
	doc := map[string]any{}
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &doc); err != nil {
			return nil, err
		}
	}
	doc["id"] = row.ID
	doc["user_id"] = row.UserID
	doc["created_at"] = row.CreatedAt.UTC().Format(time.RFC3339Nano)
	doc["updated_at"] = row.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return doc, nil
}

// rowFromJSON is the inverse: peel off the column-backed attributes and keep
// the rest as the fields document. The URL id wins over any id in the body;
// the authenticated user always owns the row regardless of the body.
func rowFromJSON(doc map[string]any, userID string, table api.Table, id string) (*models.Row, error) {
	now := time.Now().UTC()
	createdAt := timeField(doc, "created_at", now)
	updatedAt := timeField(doc, "updated_at", now)

	for _, k := range reservedKeys {
		delete(doc, k)
	}
	fields, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return &models.Row{
		ID:        id,
		UserID:    userID,
		Table:     table,
		Fields:    fields,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func timeField(doc map[string]any, key string, fallback time.Time) time.Time {
	s, ok := doc[key].(string)
	if !ok {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback
	}
	return t.UTC()
}
