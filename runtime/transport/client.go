// Package transport sends finalized recordings, meeting chunks and text
// messages to the VoiceDesk backend.
//
// Every request carries exactly one bearer token and is attempted exactly
// once. Failures are mapped to ErrNetwork, ErrTimeout, ErrUnauthenticated or
// *ServerError and wrapped in a ContextualError naming the operation.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AltairaLabs/VoiceDesk/pkg/httputil"
	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/version"
)

// Endpoint paths relative to the API base URL.
const (
	PathAudio        = "/chat/audio"
	PathMessage      = "/chat/message"
	PathMeetingStart = "/meetings/recording/start"
	PathMeetingChunk = "/meetings/recording/{id}/chunks"
	PathMeetingStop  = "/meetings/recording/{id}/stop"
)

// Multipart field names.
const (
	FieldAudio      = "audio"
	FieldChunk      = "chunk"
	FieldChunkIndex = "chunk_index"
	FieldStartMs    = "start_ms"
	FieldEndMs      = "end_ms"
)

// ErrInvalidRequest is returned for arguments rejected before any I/O.
var ErrInvalidRequest = errors.New("invalid request")

// Client is the backend API client.
type Client struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	rest           *resty.Client
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	onUnauthorized func(ctx context.Context)
	now            func() time.Time

	mu              sync.Mutex
	uploadEndpoints map[int64]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRequestTimeout bounds session start/stop and text message calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithUploadTimeout bounds whole-recording and chunk uploads.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.uploadTimeout = d
		}
	}
}

// WithUnauthorizedHandler registers fn to run whenever a call fails as
// unauthenticated, either because no token is available or because the
// backend answered 401. It runs before the error is returned to the caller.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithClock overrides the time source used for upload file names.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		tokens:          tokens,
		requestTimeout:  httputil.DefaultRequestTimeout,
		uploadTimeout:   httputil.DefaultUploadTimeout,
		now:             time.Now,
		uploadEndpoints: make(map[int64]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// Deadlines come from the per-request context.
		c.httpClient = httputil.NewHTTPClient(0)
	}

	c.rest = resty.NewWithClient(c.httpClient).
		SetBaseURL(c.baseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent()).
		SetLogger(restyLogger{})
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendWhole uploads a finalized recording as multipart field "audio".
func (c *Client) SendWhole(ctx context.Context, audio *capture.Audio) (*AudioResponse, error) {
	const op = "SendWhole"
	if audio == nil {
		return nil, wrap(op, 0, fmt.Errorf("%w: no audio", ErrInvalidRequest))
	}

	name := audio.FileName(c.now())
	var out AudioResponse
	err := c.do(ctx, op, c.uploadTimeout, http.MethodPost, PathAudio,
		map[string]any{FieldAudio: name, "mime_type": audio.MIMEType, "bytes": audio.Size()},
		func(r *resty.Request) *resty.Request {
			return r.SetMultipartField(FieldAudio, name, audio.MIMEType, bytes.NewReader(audio.Data))
		}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage sends a text message to the assistant.
func (c *Client) SendMessage(ctx context.Context, text string) (*AudioResponse, error) {
	const op = "SendMessage"
	if strings.TrimSpace(text) == "" {
		return nil, wrap(op, 0, fmt.Errorf("%w: empty message", ErrInvalidRequest))
	}

	body := map[string]string{"message": text}
	var out AudioResponse
	err := c.do(ctx, op, c.requestTimeout, http.MethodPost, PathMessage, body,
		func(r *resty.Request) *resty.Request {
			return r.SetHeader("Content-Type", "application/json").SetBody(body)
		}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession opens a meeting recording session on the backend.
func (c *Client) StartSession(ctx context.Context) (*SessionStarted, error) {
	var out SessionStarted
	err := c.do(ctx, "StartSession", c.requestTimeout, http.MethodPost, PathMeetingStart, nil,
		func(r *resty.Request) *resty.Request { return r }, &out)
	if err != nil {
		return nil, err
	}

	if out.UploadEndpoint != "" {
		c.mu.Lock()
		c.uploadEndpoints[out.SessionID] = out.UploadEndpoint
		c.mu.Unlock()
	}
	return &out, nil
}

// SendChunk uploads one meeting segment. startMs and endMs are sent only
// when non-negative. Ordering is the caller's responsibility.
func (c *Client) SendChunk(
	ctx context.Context, sessionID int64, index int, payload []byte, startMs, endMs int64,
) (*ChunkAck, error) {
	const op = "SendChunk"
	if index < 0 {
		return nil, wrap(op, 0, fmt.Errorf("%w: chunk index %d", ErrInvalidRequest, index))
	}

	fields := map[string]string{FieldChunkIndex: strconv.Itoa(index)}
	if startMs >= 0 {
		fields[FieldStartMs] = strconv.FormatInt(startMs, 10)
	}
	if endMs >= 0 {
		fields[FieldEndMs] = strconv.FormatInt(endMs, 10)
	}

	path := c.chunkPath(sessionID)
	name := fmt.Sprintf("chunk_%d.bin", index)
	summary := map[string]any{FieldChunk: name, "bytes": len(payload), "fields": fields}

	var out ChunkAck
	err := c.do(ctx, op, c.uploadTimeout, http.MethodPost, path, summary,
		func(r *resty.Request) *resty.Request {
			return r.SetMultipartFormData(fields).
				SetMultipartField(FieldChunk, name, "application/octet-stream", bytes.NewReader(payload))
		}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StopSession closes a meeting recording session.
func (c *Client) StopSession(ctx context.Context, sessionID int64) (*SessionStopped, error) {
	path := strings.Replace(PathMeetingStop, "{id}", strconv.FormatInt(sessionID, 10), 1)

	var out SessionStopped
	err := c.do(ctx, "StopSession", c.requestTimeout, http.MethodPost, path, nil,
		func(r *resty.Request) *resty.Request { return r }, &out)

	c.mu.Lock()
	delete(c.uploadEndpoints, sessionID)
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) chunkPath(sessionID int64) string {
	c.mu.Lock()
	endpoint, ok := c.uploadEndpoints[sessionID]
	c.mu.Unlock()
	if ok {
		return c.resolveEndpoint(endpoint)
	}
	return strings.Replace(PathMeetingChunk, "{id}", strconv.FormatInt(sessionID, 10), 1)
}

// resolveEndpoint turns a server-provided upload endpoint into something do
// accepts: absolute URLs pass through, host-absolute paths are resolved
// against the base URL's origin and anything else is relative to the API
// root.
func (c *Client) resolveEndpoint(endpoint string) string {
	if isAbsoluteURL(endpoint) {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return endpoint
	}
	return base.ResolveReference(&url.URL{Path: endpoint}).String()
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (c *Client) do(
	ctx context.Context,
	op string,
	timeout time.Duration,
	method, path string,
	summary any,
	build func(*resty.Request) *resty.Request,
	out any,
) error {
	token := c.tokens.Token()
	if token == "" {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return wrap(op, 0, ErrUnauthenticated)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + path
	if isAbsoluteURL(path) {
		target = path
	}
	logger.APIRequest(reqCtx, method, target, map[string]string{"Authorization": "Bearer " + token}, summary)

	req := build(c.rest.R().SetContext(reqCtx).SetAuthToken(token))
	resp, err := req.Execute(method, path)
	if err != nil {
		logger.APIResponse(reqCtx, target, 0, "", err)
		return wrap(op, 0, classifyTransportError(err))
	}

	status := resp.StatusCode()
	body := resp.Body()
	logger.APIResponse(reqCtx, target, status, string(body), nil)

	if !resp.IsSuccess() {
		cause := classifyStatus(status, body)
		if errors.Is(cause, ErrUnauthenticated) && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return wrap(op, status, cause)
	}

	if out == nil {
		return nil
	}
	if err := unmarshal(body, out); err != nil {
		return wrap(op, status, &ServerError{StatusCode: status, Message: "malformed response: " + err.Error()})
	}
	return nil
}

func unmarshal(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, out)
}

// restyLogger routes resty's internal messages into the structured logger.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	logger.Error("resty", "message", fmt.Sprintf(format, v...))
}

func (restyLogger) Warnf(format string, v ...any) {
	logger.Debug("resty", "message", fmt.Sprintf(format, v...))
}

func (restyLogger) Debugf(format string, v ...any) {
	logger.Debug("resty", "message", fmt.Sprintf(format, v...))
}
