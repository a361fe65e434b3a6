package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/common"
	"github.com/dmitrijs2005/briefly/internal/logging"
	"github.com/google/uuid"
)

const maxErrorBody = 64 << 10

// HTTPClient implements Client over the Briefly HTTP/JSON API. It holds no
// session state and is safe for concurrent use.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	log     logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the API rooted at baseURL. A zero
// timeout disables the per-request deadline.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	return &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *HTTPClient) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.JoinPath(escaped...).String()
}

// do sends req and returns the response when its status is 2xx. Transport
// failures wrap ErrUnavailable; error statuses become *APIError.
func (c *HTTPClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, reqID)
	if token := AccessToken(ctx); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "api request failed", "method", req.Method, "path", req.URL.Path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.log.Debug(ctx, "api request", "method", req.Method, "path", req.URL.Path, "request_id", reqID,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &APIError{
		Kind:       kindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Detail:     errorDetail(b),
	}
}

// errorDetail extracts the human-readable text of an error body. FastAPI
// validation failures carry a list of {msg} objects instead of a string.
func errorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// call sends a JSON request and decodes the envelope's result into out.
// A nil in sends no body; a nil out only checks the envelope status.
func (c *HTTPClient) call(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.roundTrip(ctx, req, out)
}

func (c *HTTPClient) roundTrip(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := decodeEnvelope(resp.Body, out); err != nil {
		c.log.Warn(ctx, "malformed api response", "method", req.Method, "path", req.URL.Path, "error", err)
		return err
	}
	return nil
}

func decodeEnvelope(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if env.Status != "OK" {
		return fmt.Errorf("%w: status %q", ErrMalformedResponse, env.Status)
	}
	if out == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func (c *HTTPClient) CreateUser(ctx context.Context, reg models.Registration) (*models.RegisteredUser, error) {
	var res models.RegisteredUser
	if err := c.call(ctx, http.MethodPost, c.endpoint("user", "create"), reg, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) VerifyUser(ctx context.Context, email, password string) (*models.Credentials, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var res models.Credentials
	if err := c.call(ctx, http.MethodPost, c.endpoint("user", "verify"), in, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || res.User == nil || res.User.ID == "" {
		c.log.Warn(ctx, "login response without token or user")
		return nil, fmt.Errorf("%w: login response without token or user", ErrMalformedResponse)
	}
	return &res, nil
}

func (c *HTTPClient) ListOwnedSummaries(ctx context.Context, userID string) ([]models.Summary, error) {
	var res []models.Summary
	if err := c.call(ctx, http.MethodGet, c.endpoint("summaries", userID), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) ListSharedSummaries(ctx context.Context, userID string) ([]models.Summary, error) {
	var res []models.Summary
	if err := c.call(ctx, http.MethodGet, c.endpoint("user", userID, "shared-summaries"), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) FetchSummary(ctx context.Context, id string) (*models.Summary, error) {
	var res models.Summary
	if err := c.call(ctx, http.MethodGet, c.endpoint("summary", id), nil, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("%w: summary without id", ErrMalformedResponse)
	}
	return &res, nil
}

func (c *HTTPClient) CreateSummaryFromText(ctx context.Context, r models.TextSummaryRequest) (*models.CreatedSummary, error) {
	in := struct {
		UserID      string             `json:"userId"`
		Type        models.SummaryType `json:"type"`
		UploadType  models.UploadType  `json:"uploadType"`
		InitialData string             `json:"initialData"`
	}{r.UserID, r.Type, models.UploadTypeText, r.Text}

	var res models.CreatedSummary
	if err := c.call(ctx, http.MethodPost, c.endpoint("summary", "create"), in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) CreateSummaryFromFile(ctx context.Context, r models.FileSummaryRequest) (*models.CreatedSummary, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"userId", r.UserID},
		{"type", string(r.Type)},
		{"uploadType", string(models.UploadTypeUpload)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}

	contentType := r.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": r.FileName,
	}))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r.Content); err != nil {
		return nil, fmt.Errorf("read %s: %w", r.FileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("summary", "upload"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var res models.CreatedSummary
	if err := c.roundTrip(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) DeleteSummary(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.endpoint("summary", id), nil, nil)
}

func (c *HTTPClient) ShareSummary(ctx context.Context, id, recipient string) (string, error) {
	in := struct {
		SummaryID string `json:"summary_id"`
		Recipient string `json:"recipient"`
	}{id, recipient}

	var res struct {
		Message string `json:"message"`
	}
	if err := c.call(ctx, http.MethodPost, c.endpoint("summary", "share"), in, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// RegenerateSummary sends feedback as a bare JSON string body.
func (c *HTTPClient) RegenerateSummary(ctx context.Context, id, feedback string) error {
	return c.call(ctx, http.MethodPost, c.endpoint("summary", "regenerate", id), feedback, nil)
}

func (c *HTTPClient) DownloadFile(ctx context.Context, fileID string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("download", fileID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	blob := &Blob{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		blob.Name = params["filename"]
	}
	return blob, nil
}
