package caseworksdk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSendsFormAndDecodesResult(t *testing.T) {
	var got struct {
		Fields  map[string]string `json:"fields"`
		Members []Member          `json:"members"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/registrations", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"success":true,"code":"fam-20241203-ABC123","message":"ok"}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).Register(context.Background(), map[string]string{"city": "Recife"}, []Member{{Name: "Pedro"}})
	require.NoError(t, err)
	assert.Equal(t, RegistrationResult{Success: true, Code: "fam-20241203-ABC123", Message: "ok"}, res)
	assert.Equal(t, "Recife", got.Fields["city"])
	assert.Equal(t, []Member{{Name: "Pedro"}}, got.Members)
}

func TestErrorEnvelopeIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":"forbidden","message":"permission reports.export required"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "key-1"
	_, err := c.StatisticsReport(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "reports.export")
}

func TestDownloadReadsFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/reports/visits.pdf", r.URL.Path)
		assert.Equal(t, "2024-12-01", r.URL.Query().Get("start"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="relatorio-visitas-2024-12-01-2024-12-31.pdf"`)
		io.WriteString(w, "%PDF-1.3")
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "tok"
	f, err := c.VisitsReport(context.Background(), time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "relatorio-visitas-2024-12-01-2024-12-31.pdf", f.Filename)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, []byte("%PDF-1.3"), f.Body)
}

func TestAddMemberFillsNewRow(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			io.WriteString(w, `{"id":"s1","step":3,"members":[{"name":"A"},{"name":""}]}`)
		case http.MethodPatch:
			var m Member
			require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
			assert.Equal(t, "Rosa", m.Name)
			io.WriteString(w, `{"id":"s1","step":3,"members":[{"name":"A"},{"name":"Rosa"}]}`)
		}
	}))
	defer srv.Close()

	s, err := New(srv.URL).AddMember(context.Background(), "s1", Member{Name: "Rosa", Kinship: "Filha"})
	require.NoError(t, err)
	assert.Len(t, s.Members, 2)
	assert.Equal(t, []string{
		"POST /v0/registrations/sessions/s1/members",
		"PATCH /v0/registrations/sessions/s1/members/1",
	}, calls)
}
