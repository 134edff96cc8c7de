package quote

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spacefoot/pricer/internal/common"
	"github.com/spacefoot/pricer/internal/policy"
)

// Handler exposes the pricing endpoints.
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

// Profiles handles GET /api/v1/profiles.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, h.service.Profiles(r.Context()))
}

// Profile handles GET /api/v1/profiles/{profile}.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	view, err := h.service.Profile(r.Context(), chi.URLParam(r, "profile"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// Quote handles POST /api/v1/profiles/{profile}/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, chi.URLParam(r, "profile"))
}

// QuoteDefault handles POST /api/v1/quote against the default profile.
func (h *Handler) QuoteDefault(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	h.quote(w, r, h.service.DefaultProfile())
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request, profile string) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := decodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.Quote(r.Context(), profile, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// UpdateProfile handles PATCH /api/v1/admin/profiles/{profile}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var patch policy.Patch
	if err := decodeJSON(r, &patch); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "profile"), patch)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		appErr := common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			appErr.Message = "empty payload"
		case errors.As(err, &syntaxErr):
			appErr.Details = map[string]any{"offset": syntaxErr.Offset}
		case errors.As(err, &typeErr):
			appErr.Details = map[string]any{"field": typeErr.Field}
		}
		return appErr
	}
	return nil
}
