package caseworksdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Client is a minimal Casework HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Member is one household member row of a registration.
type Member struct {
	Name    string `json:"name"`
	Kinship string `json:"kinship"`
	Age     string `json:"age"`
}

// RegistrationResult is the outcome of a submission.
type RegistrationResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Session is the state of a registration wizard (partial).
type Session struct {
	ID       string   `json:"id"`
	Step     int      `json:"step"`
	StepName string   `json:"step_name"`
	Progress int      `json:"progress"`
	Members  []Member `json:"members"`
	Missing  []string `json:"missing_required"`
}

// Family represents the API family model (partial).
type Family struct {
	ID              string `json:"id"`
	PublicCode      string `json:"public_code"`
	ResponsibleName string `json:"responsible_name"`
	Neighborhood    string `json:"neighborhood"`
	City            string `json:"city"`
	Status          string `json:"status"`
	UrgencyLevel    string `json:"urgency_level"`
	CreatedAt       string `json:"created_at"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// PaginatedEvents pages backwards through the audit log.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextBefore int64   `json:"next_before"`
}

// File is a downloaded report.
type File struct {
	Filename    string
	ContentType string
	Body        []byte
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register submits a whole registration form in one request.
func (c *Client) Register(ctx context.Context, fields map[string]string, members []Member) (RegistrationResult, error) {
	body := map[string]any{"fields": fields, "members": members}
	var resp RegistrationResult
	err := c.do(ctx, http.MethodPost, "registrations", body, &resp)
	return resp, err
}

// StartSession opens a registration wizard session.
func (c *Client) StartSession(ctx context.Context) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "registrations/sessions", nil, &resp)
	return resp, err
}

// SetFields sets form fields on a session.
func (c *Client) SetFields(ctx context.Context, sessionID string, fields map[string]string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPatch, sessionPath(sessionID, "fields"), map[string]any{"fields": fields}, &resp)
	return resp, err
}

// Next advances the wizard one step.
func (c *Client) Next(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "next"), nil, &resp)
	return resp, err
}

// Previous moves the wizard back one step.
func (c *Client) Previous(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "previous"), nil, &resp)
	return resp, err
}

// AddMember appends a member row and fills it.
func (c *Client) AddMember(ctx context.Context, sessionID string, m Member) (Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "members"), nil, &resp); err != nil {
		return resp, err
	}
	idx := strconv.Itoa(len(resp.Members) - 1)
	err := c.do(ctx, http.MethodPatch, sessionPath(sessionID, "members/"+idx), m, &resp)
	return resp, err
}

// Submit sends the session's registration. The wizard must be on its last step.
func (c *Client) Submit(ctx context.Context, sessionID string) (RegistrationResult, error) {
	var resp RegistrationResult
	err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "submit"), nil, &resp)
	return resp, err
}

// Families lists families matching search.
func (c *Client) Families(ctx context.Context, search string) ([]Family, error) {
	endpoint := "families"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	var resp []Family
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Family fetches a family by id or public code.
func (c *Client) Family(ctx context.Context, idOrCode string) (Family, error) {
	var resp Family
	err := c.do(ctx, http.MethodGet, "families/"+url.PathEscape(idOrCode), nil, &resp)
	return resp, err
}

// EventsPage returns up to limit events older than before (0 for newest).
func (c *Client) EventsPage(ctx context.Context, limit int, before int64) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// FamiliesReport downloads the family list as "pdf" or "csv".
func (c *Client) FamiliesReport(ctx context.Context, format string) (File, error) {
	return c.download(ctx, "reports/families."+format)
}

// VisitsReport downloads the visits report for days start..end inclusive.
func (c *Client) VisitsReport(ctx context.Context, start, end time.Time) (File, error) {
	q := url.Values{}
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	return c.download(ctx, "reports/visits.pdf?"+q.Encode())
}

func (c *Client) StatisticsReport(ctx context.Context) (File, error) {
	return c.download(ctx, "reports/statistics.pdf")
}

func (c *Client) FamilyReport(ctx context.Context, idOrCode string) (File, error) {
	return c.download(ctx, "families/"+url.PathEscape(idOrCode)+"/report.pdf")
}

func sessionPath(id, action string) string {
	return "registrations/sessions/" + url.PathEscape(id) + "/" + action
}

func (c *Client) download(ctx context.Context, endpoint string) (File, error) {
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return File{}, err
	}
	f := File{ContentType: resp.Header.Get("Content-Type"), Body: body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		f.Filename = params["filename"]
	}
	return f, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
