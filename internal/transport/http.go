package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/pkg/logger"
)

// HTTPError is a non-2xx backend response. Its message carries the status
// code and text so the retry classifier recognizes rate limiting and
// gateway failures.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RateLimit is requests per second toward the backend; Burst is the
	// limiter burst size. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// HTTPTransport implements Transport against a bridging REST API.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(cfg HTTPConfig, log *logger.Logger) (*HTTPTransport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if log == nil {
		log = logger.NewDefault("transport")
	}
	return &HTTPTransport{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        log,
	}, nil
}

// DiscoverRoutes implements Transport.
func (t *HTTPTransport) DiscoverRoutes(ctx context.Context, source, dest chains.ChainID, tokenIn, tokenOut string) ([]Route, error) {
	src, ok := source.Value()
	if !ok {
		return nil, fmt.Errorf("source chain id required")
	}
	dst, ok := dest.Value()
	if !ok {
		return nil, fmt.Errorf("destination chain id required")
	}

	q := url.Values{}
	q.Set("sourceChainId", strconv.FormatUint(src, 10))
	q.Set("destChainId", strconv.FormatUint(dst, 10))
	q.Set("tokenIn", tokenIn)
	q.Set("tokenOut", tokenOut)

	var out struct {
		Routes []Route `json:"routes"`
	}
	if err := t.do(ctx, http.MethodGet, "/v1/routes?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Routes, nil
}

// EstimateFee implements Transport.
func (t *HTTPTransport) EstimateFee(ctx context.Context, route Route, amount string) (FeeQuote, error) {
	body := struct {
		RouteID string `json:"routeId"`
		Amount  string `json:"amount"`
	}{RouteID: route.ID, Amount: amount}

	var quote FeeQuote
	if err := t.do(ctx, http.MethodPost, "/v1/fees", body, &quote); err != nil {
		return FeeQuote{}, err
	}
	return quote, nil
}

// Submit implements Transport. Each submission carries an idempotency key
// so a retried request cannot create a second swap.
func (t *HTTPTransport) Submit(ctx context.Context, req SubmitRequest) (SubmitReceipt, error) {
	var receipt SubmitReceipt
	err := t.doWithHeaders(ctx, http.MethodPost, "/v1/swaps", req, &receipt, map[string]string{
		"Idempotency-Key": uuid.NewString(),
	})
	if err != nil {
		return SubmitReceipt{}, err
	}
	if receipt.SwapID == "" {
		return SubmitReceipt{}, fmt.Errorf("backend returned empty swap id")
	}
	return receipt, nil
}

// FetchStatus implements Transport.
func (t *HTTPTransport) FetchStatus(ctx context.Context, swapID string) (SwapStatus, error) {
	var status SwapStatus
	if err := t.do(ctx, http.MethodGet, "/v1/swaps/"+url.PathEscape(swapID), nil, &status); err != nil {
		return SwapStatus{}, err
	}
	return status, nil
}

// Cancel implements Transport.
func (t *HTTPTransport) Cancel(ctx context.Context, swapID string) error {
	return t.do(ctx, http.MethodPost, "/v1/swaps/"+url.PathEscape(swapID)+"/cancel", nil, nil)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body, out interface{}) error {
	return t.doWithHeaders(ctx, method, path, body, out, nil)
}

func (t *HTTPTransport) doWithHeaders(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.apiKey != "" {
		req.Header.Set("X-Api-Key", t.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
