package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"code":"MAT101","name":"Calculus I","credits":4}`, ""},
		{"empty body", ``, "request body is empty"},
		{"malformed", `{"code":`, "invalid request body"},
		{"unknown field", `{"code":"MAT101","name":"x","credits":4,"teacher":"bob"}`, "unknown field"},
		{"fails validation", `{"code":"MAT101","credits":4}`, "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects", strings.NewReader(tt.body))

			var req createSubjectRequest
			err := DecodeJSON(r, &req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "MAT101", req.Code)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestURLParamInt64(t *testing.T) {
	r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "42")
	id, err := URLParamInt64(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", raw)
		_, err := URLParamInt64(r, "id")
		assert.Error(t, err, raw)
	}
}

func TestQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/?event=created&page=2&academic_year_id=5&from=2026-01-01T00:00:00Z&bad=x&neg=-1", nil)

	assert.Equal(t, "created", *QueryString(r, "event"))
	assert.Nil(t, QueryString(r, "log_name"))

	page, err := QueryInt(r, "page")
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	size, err := QueryInt(r, "size")
	require.NoError(t, err)
	assert.Zero(t, size)
	_, err = QueryInt(r, "bad")
	assert.Error(t, err)

	year, err := QueryInt64(r, "academic_year_id")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *year)
	_, err = QueryInt64(r, "neg")
	assert.Error(t, err)

	from, err := QueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, 2026, from.Year())
	to, err := QueryTime(r, "to")
	require.NoError(t, err)
	assert.Nil(t, to)
	_, err = QueryTime(r, "bad")
	assert.Error(t, err)
}
