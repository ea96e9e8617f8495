package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"bgv-dashboard/internal/config"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/util"
)

// ErrUnauthorized is returned for any backend response with status 401.
// Callers must evict the session and send the user back to the login
// screen; nothing else is retried or recovered.
var ErrUnauthorized = errors.New("backend rejected access token")

// APIError carries an application-level error reported inside the
// response envelope.
type APIError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}

// FieldError returns the first message recorded for any of the given
// fields, falling back to the envelope message. Field-level messages
// always win over the generic one.
func (e *APIError) FieldError(fields ...string) string {
	for _, f := range fields {
		if msgs := e.Errors[f]; len(msgs) > 0 && msgs[0] != "" {
			return msgs[0]
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return "An error occurred. Please try again."
}

// FileUpload is one file forwarded to the backend as a multipart part.
type FileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Content     io.Reader
}

// BackendClient is the single request pipeline to the verification
// backend. Every call attaches the bearer token when one is supplied,
// decodes the shared response envelope, and maps 401 to
// ErrUnauthorized.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewBackendClient(cfg *config.Config, logger *zap.Logger) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
		logger: logger,
	}
}

// Login authenticates against the backend and returns the user record
// with a fresh token pair.
func (c *BackendClient) Login(ctx context.Context, email, password string) (*model.LoginData, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.doJSON(ctx, http.MethodPost, "/api/auth/login/", "", body)
	if err != nil {
		return nil, err
	}

	var data model.LoginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode login payload: %w", err)
	}
	return &data, nil
}

// ListRequests fetches the caller's full collection of verification
// requests. The backend returns the entire set; there is no pagination.
func (c *BackendClient) ListRequests(ctx context.Context, accessToken string) ([]model.BGVRequest, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/bgv/", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var requests []model.BGVRequest
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &requests); err != nil {
			return nil, fmt.Errorf("failed to decode request list: %w", err)
		}
	}
	return requests, nil
}

// GetRequest fetches one verification request with its nested record.
func (c *BackendClient) GetRequest(ctx context.Context, accessToken string, id int) (*model.BGVRequest, error) {
	env, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bgv/%d/", id), accessToken, nil)
	if err != nil {
		return nil, err
	}
	return decodeRequest(env)
}

// UploadResume submits one PDF resume and returns the verification
// request the backend created for it.
func (c *BackendClient) UploadResume(ctx context.Context, accessToken string, file FileUpload) (*model.BGVRequest, error) {
	file.FieldName = "file"
	env, err := c.doMultipart(ctx, "/api/bgv/upload/", accessToken, file)
	if err != nil {
		return nil, err
	}
	return decodeRequest(env)
}

// SubmitDocuments sends the PAN and Aadhaar images in a single
// multipart request under their fixed field names.
func (c *BackendClient) SubmitDocuments(ctx context.Context, accessToken string, id int, pan, aadhaar FileUpload) (*model.BGVRequest, error) {
	pan.FieldName = model.DocumentTypePAN
	aadhaar.FieldName = model.DocumentTypeAadhaar
	path := fmt.Sprintf("/api/bgv/%d/submit-documents/", id)
	env, err := c.doMultipart(ctx, path, accessToken, pan, aadhaar)
	if err != nil {
		return nil, err
	}
	return decodeRequest(env)
}

func decodeRequest(env *model.Envelope) (*model.BGVRequest, error) {
	var req model.BGVRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode verification request: %w", err)
	}
	return &req, nil
}

func (c *BackendClient) doJSON(ctx context.Context, method, path, accessToken string, body any) (*model.Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.send(req)
}

// doMultipart builds the multipart body eagerly so the transport sets
// the boundary; the JSON content type is never attached here.
func (c *BackendClient) doMultipart(ctx context.Context, path, accessToken string, files ...FileUpload) (*model.Envelope, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.FieldName, f.Filename))
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart field %s: %w", f.FieldName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to copy file %s: %w", f.Filename, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.send(req)
}

func (c *BackendClient) send(req *http.Request) (*model.Envelope, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			util.String("method", req.Method),
			util.String("path", req.URL.Path),
			util.ErrorField(err),
		)
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request completed",
		util.String("method", req.Method),
		util.String("path", req.URL.Path),
		util.Int("status", resp.StatusCode),
		util.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode backend response: %w", err)
	}

	if env.Status == "error" || resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Errors:     env.Errors,
		}
	}

	return &env, nil
}
