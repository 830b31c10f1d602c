package extractor

import (
	"context"

	"github.com/italolelis/media_gateway/internal/logctx"
	"github.com/italolelis/media_gateway/internal/media"
	"github.com/italolelis/media_gateway/internal/retry"
)

// Client wraps the Engine's metadata operation with the bounded retry policy
// for transient rate-limit failures and with the credential staging
// discipline. It is the sole caller of the engine on the metadata path.
type Client struct {
	engine Engine
	policy retry.Policy
}

// NewClient creates an extraction client. A policy without a Retryable
// predicate defaults to retrying rate-limit-class errors only.
func NewClient(engine Engine, policy retry.Policy) *Client {
	if policy.Retryable == nil {
		policy.Retryable = IsRateLimited
	}

	return &Client{engine: engine, policy: policy}
}

// Extract fetches the metadata document for url. Cookie material, when
// given, is staged into a transient credential file for the duration of the
// call and discarded afterwards regardless of outcome.
func (c *Client) Extract(ctx context.Context, url, cookies string) (*media.Info, error) {
	logger := logctx.LoggerFromContext(ctx)

	cookieFile, discard, err := StageCookies(ctx, cookies)
	if err != nil {
		return nil, err
	}
	defer discard()

	policy := c.policy
	policy.OnRetry = func(attempt int, err error) {
		logger.Warn("rate limited by upstream, backing off", "url", url, "attempt", attempt, "err", err)
	}

	var info *media.Info

	if err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		info, err = c.engine.ExtractMetadata(ctx, url, cookieFile)

		return err
	}); err != nil {
		return nil, &ExtractionError{URL: url, Message: err.Error(), Err: err}
	}

	return info, nil
}
