package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orbitalworks/foundry/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("blueprint catalog unavailable")

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) Service {
	return &Client{
		baseURL: cfg.TechDBURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.Named("catalog.client"),
	}
}

func (c *Client) FetchAll(ctx context.Context) (map[string]Blueprint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/blueprints", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("blueprint fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("blueprint fetch failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: techdb responded with %d", ErrUnavailable, resp.StatusCode)
	}

	var blueprints map[string]Blueprint
	if err := json.NewDecoder(resp.Body).Decode(&blueprints); err != nil {
		return nil, fmt.Errorf("%w: decode blueprints: %v", ErrUnavailable, err)
	}
	return blueprints, nil
}

var Module = fx.Module("catalog",
	fx.Provide(NewClient),
)
