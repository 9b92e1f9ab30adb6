package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// RemoteSubmitter submits settlements to an external HTTP endpoint
// implementing the settlement capability: POST a request, read back
// {success, pnl, tx_ref, error}. Responses are parsed leniently so a
// collaborator adding fields does not break us.
type RemoteSubmitter struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// RemoteOption configures a RemoteSubmitter.
type RemoteOption func(*RemoteSubmitter)

// WithHTTPClient sets a custom http client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteSubmitter) { r.client = c }
}

// WithRateLimit caps outbound submissions per second.
func WithRateLimit(perSecond float64, burst int) RemoteOption {
	return func(r *RemoteSubmitter) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// NewRemoteSubmitter creates a submitter against the given endpoint.
func NewRemoteSubmitter(endpoint string, opts ...RemoteOption) *RemoteSubmitter {
	r := &RemoteSubmitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit posts the request and maps the response. HTTP 429 (and bodies
// mentioning throttling) surface as ErrRateLimited so the executor retries.
func (r *RemoteSubmitter) Submit(ctx context.Context, req Request) (Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(map[string]any{
		"chain":   req.Chain,
		"address": req.Address,
		"amount":  req.Amount,
		"kind":    string(req.Kind),
	})
	if err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{}, fmt.Errorf("%w: http 429 from %s", ErrRateLimited, r.endpoint)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("settlement endpoint returned %d: %s", resp.StatusCode, string(raw))
	}
	if !gjson.ValidBytes(raw) {
		return Result{}, fmt.Errorf("settlement endpoint returned invalid json")
	}

	parsed := gjson.ParseBytes(raw)
	res := Result{
		Success: parsed.Get("success").Bool(),
		PnL:     parsed.Get("pnl").Float(),
		TxRef:   parsed.Get("tx_ref").String(),
		Err:     parsed.Get("error").String(),
	}
	if !res.Success && IsRateLimited(fmt.Errorf("%s", res.Err)) {
		return Result{}, fmt.Errorf("%w: %s", ErrRateLimited, res.Err)
	}
	return res, nil
}
