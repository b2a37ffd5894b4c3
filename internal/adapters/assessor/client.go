package assessor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"golang.org/x/time/rate"
)

const (
	// El servicio de evaluación es caro (LLM + fetch de evidencias): 2 req/s.
	assessRatePerSec = 2
	assessBurst      = 4

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

var _ ports.Assessor = (*Client)(nil)

// Client es el HTTP client del servicio externo de evaluación de disputas,
// con rate limiting y retries.
type Client struct {
	http    *http.Client
	base    string
	token   string
	limiter *rate.Limiter
	retry   time.Duration
}

// Option personaliza un Client.
type Option func(*Client)

// WithToken envía token como credencial bearer.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithRetryWait fija el backoff base; los tests lo acortan.
func WithRetryWait(d time.Duration) Option { return func(c *Client) { c.retry = d } }

// WithTimeout fija el timeout HTTP por request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient crea un Client contra base (p.ej. "https://assessor.internal").
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(assessRatePerSec, assessBurst),
		retry:   baseRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type assessRequest struct {
	DisputeID   string   `json:"dispute_id"`
	Market      string   `json:"market"`
	Winner      string   `json:"winner"`
	YesRatioBps uint64   `json:"yes_ratio_bps"`
	NoRatioBps  uint64   `json:"no_ratio_bps"`
	EvidenceRef string   `json:"resolution_evidence,omitempty"`
	Reason      string   `json:"reason"`
	Evidence    []string `json:"evidence"`
}

type assessResponse struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Assess envía la disputa al servicio y valida la respuesta.
func (c *Client) Assess(ctx context.Context, res domain.Resolution, d domain.Dispute) (domain.AutomatedReview, error) {
	body := assessRequest{
		DisputeID:   d.ID,
		Market:      d.Market.Hex(),
		Winner:      string(res.Winner),
		YesRatioBps: res.YesRatioBps,
		NoRatioBps:  res.NoRatioBps,
		EvidenceRef: res.EvidenceRef,
		Reason:      d.Reason,
		Evidence:    d.Evidence,
	}
	if body.Evidence == nil {
		body.Evidence = []string{}
	}
	var out assessResponse
	if err := c.post(ctx, c.base+"/v1/assess", body, &out); err != nil {
		return domain.AutomatedReview{}, fmt.Errorf("assessor.Assess: %w", err)
	}

	decision := domain.ReviewDecision(strings.ToUpper(out.Decision))
	switch decision {
	case domain.DecisionUphold, domain.DecisionOverturn, domain.DecisionEscalate:
	default:
		return domain.AutomatedReview{}, fmt.Errorf("assessor.Assess: unknown decision %q", out.Decision)
	}
	if out.Confidence < 0 || out.Confidence > 1 || math.IsNaN(out.Confidence) {
		return domain.AutomatedReview{}, fmt.Errorf("assessor.Assess: confidence %v out of range", out.Confidence)
	}
	return domain.AutomatedReview{
		Decision:   decision,
		Confidence: out.Confidence,
		Rationale:  out.Rationale,
	}, nil
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by assessor", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retry
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
