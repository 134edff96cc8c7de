package quote

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	env := newTestEnv(t, false)
	handler := NewHandler(HandlerConfig{Service: env.service})

	r := chi.NewRouter()
	r.Get("/api/v1/profiles", handler.Profiles)
	r.Get("/api/v1/profiles/{profile}", handler.Profile)
	r.Post("/api/v1/profiles/{profile}/quote", handler.Quote)
	r.Post("/api/v1/quote", handler.QuoteDefault)
	r.Patch("/api/v1/admin/profiles/{profile}", handler.UpdateProfile)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuoteHandler(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/profiles/fees/quote",
		`{"sku":"SKU-9","base_price":19.35,"purchase_price":8,"current_price":14.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data Quote `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "fees", resp.Data.Profile)
	require.Equal(t, "SKU-9", resp.Data.SKU)
	require.Equal(t, 14.50, resp.Data.Price)
	require.EqualValues(t, 1450, resp.Data.Cents)
	require.Equal(t, "TARGET", string(resp.Data.Type))
	require.False(t, resp.Data.Changed)
}

func TestQuoteDefaultHandlerUsesDefaultProfile(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/quote",
		`{"base_price":19.35,"purchase_price":8,"competitors":[{"name":"alpha","price":13.9},{"name":"beta","price":10.9}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data Quote `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "default", resp.Data.Profile)
	require.Equal(t, 10.89, resp.Data.Price)
	require.NotNil(t, resp.Data.Competitor)
	require.Equal(t, "beta", resp.Data.Competitor.Name)
}

func TestQuoteHandlerErrors(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown profile", "/api/v1/profiles/nope/quote", `{"base_price":10}`, http.StatusNotFound, "UNKNOWN_PROFILE"},
		{"empty body", "/api/v1/profiles/default/quote", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"malformed json", "/api/v1/profiles/default/quote", `{"base_price":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", "/api/v1/profiles/default/quote", `{"base_price":10,"discount":2}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"wrong type", "/api/v1/profiles/default/quote", `{"base_price":"ten"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"negative price", "/api/v1/profiles/default/quote", `{"base_price":-3}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"misconfigured", "/api/v1/profiles/broken/quote", `{"base_price":19.35,"purchase_price":8}`, http.StatusUnprocessableEntity, "POLICY_MISCONFIGURED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, tc.target, tc.body)
			require.Equal(t, tc.status, rec.Code)

			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestProfileHandlers(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/profiles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []ProfileSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Data, 3)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/profiles/fees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"fee_rate":15`))

	rec = doJSON(t, router, http.MethodGet, "/api/v1/profiles/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfileHandler(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/admin/profiles/default",
		`{"competitor_policy":"no_align","unset":["align_markup"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data PolicyView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.EqualValues(t, 2, resp.Data.Revision)
	require.Equal(t, "no_align", resp.Data.CompetitorPolicy)
	require.Nil(t, resp.Data.AlignMarkup)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/profiles/default/quote",
		`{"base_price":19.35,"purchase_price":8,"competitors":[{"name":"alpha","price":10.9}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var quoted struct {
		Data Quote `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&quoted))
	require.Equal(t, 11.43, quoted.Data.Price)
	require.Equal(t, "TARGET", string(quoted.Data.Type))

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/admin/profiles/default", `{"unset":["drop_rate"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/admin/profiles/default", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerWithoutService(t *testing.T) {
	h := NewHandler(HandlerConfig{})
	rec := httptest.NewRecorder()
	h.QuoteDefault(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
