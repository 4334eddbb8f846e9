package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// BridgeConfig configures the HTTP bridge adapter.
type BridgeConfig struct {
	BaseURL    string
	Timeout    time.Duration // per-request timeout; default 30s
	MaxRetries int           // default 3
}

// Bridge speaks the GET /tools, POST /execute, GET /health contract of a
// tool server over HTTP. Transient connection failures are retried by the
// underlying retryablehttp.Client below the tool-execute boundary; an
// application-level tool failure (4xx/5xx from the bridge, or a malformed
// response) is surfaced as a Result with ok=false, never a Go error.
type Bridge struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewBridge builds an HTTP bridge client.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tool bridge base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil // we log ourselves, via slog, below

	return &Bridge{baseURL: cfg.BaseURL, http: rc}, nil
}

type toolSpecWire struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Category    string         `json:"category"`
}

func (b *Bridge) ListTools(ctx context.Context) ([]Spec, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("build list tools request: %w", err)
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list tools response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list tools returned status %d: %s", resp.StatusCode, body)
	}

	var wire []toolSpecWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode list tools response: %w", err)
	}

	slog.DebugContext(ctx, "tool bridge listed tools",
		"count", len(wire),
		"duration_ms", time.Since(start).Milliseconds())

	specs := make([]Spec, len(wire))
	for i, w := range wire {
		specs[i] = Spec{Name: w.Name, Description: w.Description, Parameters: w.Parameters, Category: w.Category}
	}
	return specs, nil
}

type executeRequestWire struct {
	ToolName string         `json:"tool_name"`
	Params   map[string]any `json:"params"`
}

type executeResponseWire struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Error   string `json:"error"`
}

func (b *Bridge) Execute(ctx context.Context, name string, params map[string]any) (Result, error) {
	payload, err := json.Marshal(executeRequestWire{ToolName: name, Params: params})
	if err != nil {
		return Result{}, fmt.Errorf("encode execute request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		// Transport-level failure after retries are exhausted: this is
		// still a tool-execution outcome, not a Go error, per contract.
		slog.WarnContext(ctx, "tool bridge transport error", "tool", name, "error", err)
		return Err("transport_error", err.Error()), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Err("invalid_response", err.Error()), nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return Err("tool_not_found", name), nil
	}
	if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
		return Err("timeout", string(body)), nil
	}

	var wire executeResponseWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return Err("invalid_response", fmt.Sprintf("decode execute response: %v", err)), nil
	}

	slog.DebugContext(ctx, "tool bridge executed tool",
		"tool", name,
		"success", wire.Success,
		"duration_ms", time.Since(start).Milliseconds())

	if !wire.Success {
		kind := "tool_error"
		if wire.Error == "" {
			wire.Error = "unknown tool error"
		}
		return Err(kind, wire.Error), nil
	}
	return Ok(wire.Result, nil), nil
}

func (b *Bridge) Health(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
