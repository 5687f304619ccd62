package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DefaultSlice is the inventory slice jobs and generators operate on.
const DefaultSlice = "default"

var (
	ErrRejected    = errors.New("inventory ledger rejected delta")
	ErrUnavailable = errors.New("inventory ledger unavailable")
)

// Delta is one signed quantity change against a container's inventory slice.
type Delta struct {
	ContainerID string `json:"inventory"`
	Slice       string `json:"slice"`
	Item        string `json:"blueprint"`
	Quantity    int64  `json:"quantity"`
}

// Service applies inventory changes. A failed ApplyDelta is a full rollback
// of that call; the ledger never partially applies a delta set.
type Service interface {
	ApplyDelta(ctx context.Context, accountID string, deltas []Delta) error
	SetContainerBlueprint(ctx context.Context, containerID, blueprintID, accountID string) error
}

type Client struct {
	baseURL string
	http    *http.Client
	auth    authgw.Service
	log     *zap.Logger
}

func NewClient(cfg config.Config, auth authgw.Service, log *zap.Logger) Service {
	return &Client{
		baseURL: cfg.InventoryURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		auth:    auth,
		log:     log.Named("ledger.client"),
	}
}

func (c *Client) ApplyDelta(ctx context.Context, accountID string, deltas []Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	return c.post(ctx, "/inventory", map[string]any{
		"account": accountID,
		"changes": deltas,
	})
}

func (c *Client) SetContainerBlueprint(ctx context.Context, containerID, blueprintID, accountID string) error {
	return c.post(ctx, "/containers/"+containerID, map[string]any{
		"blueprint": blueprintID,
		"account":   accountID,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	token, err := c.auth.ServiceToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("ledger call failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: inventory responded with %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: inventory responded with %d", ErrUnavailable, resp.StatusCode)
	}
}

var Module = fx.Module("ledger",
	fx.Provide(NewClient),
)
