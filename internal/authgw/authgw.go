package authgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/orbitalworks/foundry/internal/accountctx"
	"github.com/orbitalworks/foundry/internal/clock"
	"github.com/orbitalworks/foundry/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("auth gateway unavailable")
)

// Service resolves caller credentials and provides the service-level token
// used to authorize the engine's own outbound ledger calls.
type Service interface {
	Authorize(ctx context.Context, credential string) (accountctx.Identity, error)
	ServiceToken(ctx context.Context) (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	clock   clock.Clock
	log     *zap.Logger

	// Single-entry service token cache. Refresh is idempotent, so a raced
	// refresh only costs an extra round-trip.
	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

func NewClient(cfg config.Config, clk clock.Clock, log *zap.Logger) Service {
	return &Client{
		baseURL: cfg.AuthURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		clock:   clk,
		log:     log.Named("authgw.client"),
	}
}

type authResponse struct {
	Account    string `json:"account"`
	Privileged bool   `json:"privileged"`
}

func (c *Client) Authorize(ctx context.Context, credential string) (accountctx.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return accountctx.Identity{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth", nil)
	if err != nil {
		return accountctx.Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return accountctx.Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return accountctx.Identity{}, ErrUnauthorized
	default:
		return accountctx.Identity{}, fmt.Errorf("%w: auth responded with %d", ErrUnavailable, resp.StatusCode)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return accountctx.Identity{}, fmt.Errorf("%w: decode auth response: %v", ErrUnavailable, err)
	}
	if body.Account == "" {
		return accountctx.Identity{}, ErrUnauthorized
	}

	return accountctx.Identity{AccountID: body.Account, Privileged: body.Privileged}, nil
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.token != "" && c.tokenExpiresAt.After(now) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: auth responded with %d", ErrUnavailable, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrUnavailable, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: empty service token", ErrUnavailable)
	}

	c.token = body.Token
	c.tokenExpiresAt = time.Unix(body.ExpiresAt, 0).UTC()
	c.log.Debug("service token refreshed", zap.Time("expires_at", c.tokenExpiresAt))
	return c.token, nil
}

var Module = fx.Module("authgw",
	fx.Provide(NewClient),
)
