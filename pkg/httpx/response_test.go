package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/pkg/httpx"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusBadRequest, "invalid_request", "amount must be positive")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"error":"invalid_request","error_description":"amount must be positive"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Amount int `json:"amount"`
	}

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", `{"amount":250}`, false},
		{"empty", ``, true},
		{"unknown field", `{"amount":1,"extra":true}`, true},
		{"trailing data", `{"amount":1}{"amount":2}`, true},
		{"malformed", `{"amount":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.in))
			var b body
			err := httpx.DecodeJSON(req, &b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 250, b.Amount)
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}
