package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/config"
	"casework/internal/db"
	"casework/internal/domain"
	"casework/internal/engine"
	"casework/internal/migrate"
	"casework/internal/wizard"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2024, 12, 3, 14, 30, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	engine engine.Engine
	admin  domain.User
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err, "open db")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn), "migrate")
	e := engine.New(conn, db.SQLite, config.Default())
	e.Now = func() time.Time { return fixedNow }
	admin, err := e.CreateUser(context.Background(), domain.User{Name: "Ana Souza", Email: "ana@example.org", Role: "ADMIN"}, "system")
	require.NoError(t, err, "seed admin")

	cfg := Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret, DevLogin: true}}
	for _, m := range mutate {
		m(&cfg)
	}
	handler, err := New(cfg)
	require.NoError(t, err, "build handler")
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, engine: e, admin: admin}
}

func (s *testServer) token(t *testing.T, u domain.User) map[string]string {
	t.Helper()
	tok, err := signToken(testSecret, u.ID, u.Role, time.Hour, fixedNow)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err, "marshal body")
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestRegistrationThroughWizardSession(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v0/registrations/sessions"

	res, data := doJSON(t, http.MethodPost, base, nil, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	session := decode[SessionResponse](t, data)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, 1, session.Step)
	assert.Equal(t, 20, session.Progress)
	assert.Contains(t, session.Fields, "responsible_name")

	res, data = doJSON(t, http.MethodPatch, base+"/"+session.ID+"/fields", SetFieldsRequest{Fields: map[string]string{
		"responsible_name": "Maria Silva",
		"street":           "Rua A",
		"address_number":   "12",
		"neighborhood":     "Centro",
		"city":             "Recife",
	}}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Empty(t, decode[SessionResponse](t, data).Missing)

	for i := 0; i < 2; i++ {
		res, data = doJSON(t, http.MethodPost, base+"/"+session.ID+"/next", nil, nil)
		require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	}
	res, data = doJSON(t, http.MethodPost, base+"/"+session.ID+"/members", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	res, data = doJSON(t, http.MethodPatch, base+"/"+session.ID+"/members/0", map[string]string{"name": "Pedro", "age": "9"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, []domain.MemberInput{{Name: "Pedro", Age: "9"}}, decode[SessionResponse](t, data).Members)

	res, data = doJSON(t, http.MethodPost, base+"/"+session.ID+"/submit", nil, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, string(data))

	for i := 0; i < 2; i++ {
		res, data = doJSON(t, http.MethodPost, base+"/"+session.ID+"/next", nil, nil)
		require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	}
	assert.Equal(t, int(wizard.StepFinal), decode[SessionResponse](t, data).Step)

	res, data = doJSON(t, http.MethodPost, base+"/"+session.ID+"/submit", nil, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	result := decode[wizard.Result](t, data)
	assert.True(t, result.Success)
	assert.Regexp(t, `^fam-20241203-[A-Z0-9]{6}$`, result.Code)

	details, err := srv.engine.GetFamily(context.Background(), result.Code)
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", details.ResponsibleName)
	require.Len(t, details.Members, 1)
	assert.Equal(t, "Pedro", details.Members[0].Name)

	res, data = doJSON(t, http.MethodGet, base+"/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, int(wizard.StepSubmitted), decode[SessionResponse](t, data).Step)
}

func TestOneShotRegistrationReportsMissingField(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/registrations", RegistrationRequest{Fields: map[string]string{
		"responsible_name": "Maria Silva",
		"street":           "Rua A",
		"neighborhood":     "Centro",
	}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, string(data))
	body := decode[apiError](t, data)
	assert.Equal(t, "registration_failed", body.Body.Code)
	assert.Contains(t, body.Body.Message, "city")

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/registrations", RegistrationRequest{Fields: map[string]string{"favourite_color": "blue"}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/registrations/sessions/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))
	assert.Equal(t, "not_found", decode[apiError](t, data).Body.Code)
}

func TestProtectedEndpointsRequireCredentials(t *testing.T) {
	srv := newTestServer(t)
	for _, p := range []string{"/v0/families", "/v0/dashboard", "/v0/reports/families.csv", "/v0/me"} {
		res, data := doJSON(t, http.MethodGet, srv.URL+p, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, p)
		assert.Equal(t, "unauthorized", decode[apiError](t, data).Body.Code, p)
	}
	res, _ := doJSON(t, http.MethodGet, srv.URL+"/v0/families", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv := newTestServer(t)
	_, plain, err := srv.engine.CreateAPIKey(context.Background(), srv.admin.ID, "ci", srv.admin.ID)
	require.NoError(t, err)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": plain})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	me := decode[MeResponse](t, data)
	assert.Equal(t, srv.admin.ID, me.User.ID)
	assert.Equal(t, "api_key", me.Source)
	assert.Contains(t, me.Permissions, config.PermReportsExport)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "cw_wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestVolunteerCannotExportReports(t *testing.T) {
	srv := newTestServer(t)
	vol, err := srv.engine.CreateUser(context.Background(), domain.User{Name: "Rui", Email: "rui@example.org", Role: "VOLUNTEER"}, srv.admin.ID)
	require.NoError(t, err)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/reports/statistics.pdf", nil, srv.token(t, vol))
	require.Equal(t, http.StatusForbidden, res.StatusCode, string(data))
	assert.Equal(t, "reports.export", decode[apiError](t, data).Body.Details["permission"])

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/families", nil, srv.token(t, vol))
	assert.Equal(t, http.StatusOK, res.StatusCode, string(data))
}

func TestReportDownloadsCarryFilename(t *testing.T) {
	srv := newTestServer(t)
	ref, err := srv.engine.InsertFamily(context.Background(), "fam-20241203-ABC123", domain.Registration{
		ResponsibleName: "Maria, da Silva",
		Street:          "Rua A",
		Neighborhood:    "Centro",
		City:            "Recife",
	})
	require.NoError(t, err)
	headers := srv.token(t, srv.admin)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/reports/families.csv", nil, headers)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, `attachment; filename="familias-2024-12-03.csv"`, res.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, string(data), `"Maria, da Silva"`)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/families/"+ref.ID+"/report.pdf", nil, headers)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, `attachment; filename="familia-fam-20241203-ABC123.pdf"`, res.Header.Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/reports/visits.pdf?start=2024-12-01&end=2024-12-31", nil, headers)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, `attachment; filename="relatorio-visitas-2024-12-01-2024-12-31.pdf"`, res.Header.Get("Content-Disposition"))

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/reports/visits.pdf?start=2024-12-31&end=2024-12-01", nil, headers)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
}

func TestDevLoginIssuesUsableToken(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/auth/dev/login", DevLoginRequest{UserID: srv.admin.ID}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	tok := decode[TokenResponse](t, data)

	res, data = doJSON(t, http.MethodGet, srv.URL+"/v0/dashboard", nil, map[string]string{"Authorization": "Bearer " + tok.Token})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, 0, decode[DashboardResponse](t, data).Stats.TotalFamilies)
}

func TestTokenExpiryFollowsServerClock(t *testing.T) {
	tok, err := signToken(testSecret, "u-1", "ADMIN", time.Hour, fixedNow)
	require.NoError(t, err)

	p, err := authenticateJWT(tok, testSecret, func() time.Time { return fixedNow.Add(30 * time.Minute) })
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ActorID)
	assert.Equal(t, "jwt", p.Source)

	_, err = authenticateJWT(tok, testSecret, func() time.Time { return fixedNow.Add(2 * time.Hour) })
	assert.Error(t, err)
	_, err = authenticateJWT(tok, testSecret, time.Now)
	assert.Error(t, err)
}

func TestRegistrationRoutesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.RateLimit = RateLimit{RPS: 0.01, Burst: 2} })
	for i := 0; i < 2; i++ {
		res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/registrations/sessions", nil, nil)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	}
	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/registrations/sessions", nil, nil)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode, string(data))
	assert.Equal(t, "rate_limited", decode[apiError](t, data).Body.Code)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestOpenAPIMarksPublicRoutes(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var oas struct {
		Paths map[string]map[string]struct {
			Security []map[string][]string `json:"security"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(data, &oas))
	assert.Empty(t, oas.Paths["/v0/registrations"]["post"].Security)
	assert.NotEmpty(t, oas.Paths["/v0/families"]["get"].Security)
}

func TestVisitRangeDefaults(t *testing.T) {
	start, end, err := visitRange(fixedNow, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", start.Format(isoDate))
	assert.Equal(t, "2024-12-03", end.Format(isoDate))

	_, _, err = visitRange(fixedNow, "12/01/2024", "")
	var invalid engine.InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "start", invalid.Field)
}
