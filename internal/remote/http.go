package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
)

// RequestIDHeader carries a per-call id for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 8 << 20

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
}

// HTTPClient talks to the save service over JSON-over-HTTP:
// POST {base}/api/{operation} with a JSON body, answered by an envelope
// {"success": bool, "error": string, ...}.
type HTTPClient struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, optFns ...func(o *HTTPOptions)) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("remote base url is required")
	}

	opts := HTTPOptions{Timeout: 10 * time.Second, Burst: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("savesync/remote")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPClient{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		metrics: opts.Metrics,
		tracer:  tracer,
	}, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e envelope) result() envelope { return e }

type enveloped interface{ result() envelope }

// SaveGame stores a save for identity in slot.
func (c *HTTPClient) SaveGame(ctx context.Context, identity string, slot int, blob json.RawMessage, meta SaveMetadata) error {
	req := struct {
		UserID   string          `json:"userId"`
		Slot     int             `json:"slot"`
		SaveData json.RawMessage `json:"saveData"`
		Metadata SaveMetadata    `json:"metadata"`
	}{identity, slot, blob, meta}

	var resp envelope
	return c.call(ctx, OpSaveGame, req, &resp)
}

// LoadGame fetches the save in slot.
func (c *HTTPClient) LoadGame(ctx context.Context, identity string, slot int) (SaveArtifact, error) {
	req := struct {
		UserID string `json:"userId"`
		Slot   int    `json:"slot"`
	}{identity, slot}

	var resp struct {
		envelope
		SaveArtifact
	}
	if err := c.call(ctx, OpLoadGame, req, &resp); err != nil {
		return SaveArtifact{}, err
	}
	if len(resp.Blob) == 0 || string(resp.Blob) == "null" {
		return SaveArtifact{}, fmt.Errorf("%s: missing saveData: %w", OpLoadGame, ErrData)
	}
	art := resp.SaveArtifact
	if art.Slot == 0 {
		art.Slot = slot
	}
	return art, nil
}

// ListSaves returns every save the service holds for identity.
func (c *HTTPClient) ListSaves(ctx context.Context, identity string) ([]SaveSummary, error) {
	req := struct {
		UserID string `json:"userId"`
	}{identity}

	var resp struct {
		envelope
		Saves []SaveSummary `json:"saves"`
	}
	if err := c.call(ctx, OpListSaves, req, &resp); err != nil {
		return nil, err
	}
	if resp.Saves == nil {
		return []SaveSummary{}, nil
	}
	return resp.Saves, nil
}

// StartSession opens a play session and returns its id.
func (c *HTTPClient) StartSession(ctx context.Context, identity string) (string, error) {
	req := struct {
		UserID string `json:"userId"`
	}{identity}

	var resp struct {
		envelope
		SessionID string `json:"sessionId"`
	}
	if err := c.call(ctx, OpStartSession, req, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%s: missing sessionId: %w", OpStartSession, ErrData)
	}
	return resp.SessionID, nil
}

// EndSession closes a play session.
func (c *HTTPClient) EndSession(ctx context.Context, sessionID string) error {
	req := struct {
		SessionID string `json:"sessionId"`
	}{sessionID}

	var resp envelope
	return c.call(ctx, OpEndSession, req, &resp)
}

// UpdateProgress pushes rec and returns the service-derived percentage.
func (c *HTTPClient) UpdateProgress(ctx context.Context, identity string, rec ProgressRecord) (float64, error) {
	req := struct {
		UserID   string         `json:"userId"`
		Progress ProgressRecord `json:"progress"`
	}{identity, rec}

	var resp struct {
		envelope
		ProgressPercentage *float64 `json:"progressPercentage"`
	}
	if err := c.call(ctx, OpUpdateProgress, req, &resp); err != nil {
		return 0, err
	}
	if resp.ProgressPercentage == nil {
		return 0, fmt.Errorf("%s: missing progressPercentage: %w", OpUpdateProgress, ErrData)
	}
	return *resp.ProgressPercentage, nil
}

// GetProgress fetches the stored progress record for identity.
func (c *HTTPClient) GetProgress(ctx context.Context, identity string) (ProgressSnapshot, error) {
	req := struct {
		UserID string `json:"userId"`
	}{identity}

	var resp struct {
		envelope
		Progress *ProgressRecord `json:"progress"`
		OwnerID  string          `json:"ownerId"`
	}
	if err := c.call(ctx, OpGetProgress, req, &resp); err != nil {
		return ProgressSnapshot{}, err
	}
	if resp.Progress == nil {
		return ProgressSnapshot{}, fmt.Errorf("%s: missing progress: %w", OpGetProgress, ErrData)
	}
	return ProgressSnapshot{Record: *resp.Progress, OwnerID: resp.OwnerID}, nil
}

// call performs one request and decodes the envelope into out.
func (c *HTTPClient) call(ctx context.Context, op string, in any, out enveloped) (err error) {
	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "remote."+op, trace.WithAttributes(
		attribute.String("remote.operation", op),
		attribute.String("remote.request_id", requestID),
	))
	start := time.Now()
	defer func() {
		c.metrics.RemoteCall(op, time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("remote call failed",
				zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w: %w", op, ErrNetwork, err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/"+op, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %w", op, ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusNotFound && op == OpLoadGame {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrNetwork)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", op, ErrData, err)
	}

	env := out.result()
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return fmt.Errorf("%s: %s: %w", op, msg, ErrNetwork)
	}
	return nil
}
