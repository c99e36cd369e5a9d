// HTTP client for the model-serving endpoint, with rate limiting and
// exponential-backoff retries around transient failures.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type ClientOptions struct {
	BaseURL        string
	ModelName      string
	Kind           Kind
	RequestTimeout time.Duration
	RequestsPerSec int
	MaxRetryTime   time.Duration
}

type Client struct {
	baseURL    string
	modelName  string
	kind       Kind
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetry   time.Duration
	logger     zerolog.Logger
}

func NewClient(opts ClientOptions) *Client {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 50
	}
	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = 10 * time.Second
	}
	return &Client{
		baseURL:    opts.BaseURL,
		modelName:  opts.ModelName,
		kind:       opts.Kind,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxRetry:   opts.MaxRetryTime,
		logger:     log.With().Str("component", "prediction_client").Str("model", opts.ModelName).Logger(),
	}
}

func (c *Client) Kind() Kind {
	return c.kind
}

func (c *Client) Predict(ctx context.Context, f Features) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(f)
	if err != nil {
		return Result{}, fmt.Errorf("encoding features: %w", err)
	}
	url := fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, c.modelName)

	var res Result
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(fmt.Errorf("model server status %d", resp.StatusCode))
			}
			return fmt.Errorf("model server status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding prediction: %w", err))
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetry
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("inference call failed")
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.Value < 0 || res.Confidence < 0 || res.Confidence > 1 {
		return Result{}, ErrBadScore
	}
	return res, nil
}
