package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/types"
)

// HTTPClient talks to a live game-server gateway over REST. Calls carry a
// bearer session token obtained from RenewSession; a 401 from the upstream
// surfaces as ErrSessionInvalid so the scheduler can drive renewal.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *resty.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	client := resty.New()
	client.SetTimeout(timeout)

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

func (h *HTTPClient) ListMarketsWithLocation(ctx context.Context) ([]MarketLocation, error) {
	var locations []MarketLocation
	if err := h.get(ctx, fmt.Sprintf("%s/v1/markets", h.baseURL), &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (h *HTTPClient) FetchOrders(ctx context.Context, marketID int64) ([]RawOrder, error) {
	var orders []RawOrder
	url := fmt.Sprintf("%s/v1/markets/%d/orders", h.baseURL, marketID)
	if err := h.get(ctx, url, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (h *HTTPClient) ResolvePlayerName(ctx context.Context, playerID int64) (string, error) {
	var result struct {
		PlayerID int64  `json:"player_id"`
		Name     string `json:"name"`
	}
	url := fmt.Sprintf("%s/v1/players/%d", h.baseURL, playerID)
	if err := h.get(ctx, url, &result); err != nil {
		return "", err
	}
	return result.Name, nil
}

func (h *HTTPClient) ResolveItemKey(ctx context.Context, itemType int64) (string, error) {
	var result struct {
		ItemType int64  `json:"item_type"`
		Key      string `json:"key"`
	}
	url := fmt.Sprintf("%s/v1/items/%d", h.baseURL, itemType)
	if err := h.get(ctx, url, &result); err != nil {
		return "", err
	}
	return result.Key, nil
}

func (h *HTTPClient) GetConstructPosition(ctx context.Context, constructID int64) (*ConstructPosition, error) {
	var result struct {
		ConstructID int64         `json:"construct_id"`
		ParentID    int64         `json:"parent_id"`
		Position    types.Vector3 `json:"position"`
	}
	url := fmt.Sprintf("%s/v1/constructs/%d", h.baseURL, constructID)
	if err := h.get(ctx, url, &result); err != nil {
		return nil, err
	}
	return &ConstructPosition{
		ConstructID: result.ConstructID,
		ParentID:    result.ParentID,
		Position:    result.Position,
	}, nil
}

// RenewSession exchanges the API key for a fresh session token.
func (h *HTTPClient) RenewSession(ctx context.Context) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"api_key": h.apiKey}).
		Post(fmt.Sprintf("%s/v1/session", h.baseURL))
	if err != nil {
		return fmt.Errorf("failed to renew session: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("failed to renew session: status %d", resp.StatusCode())
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("failed to decode session response: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("session response contained no token")
	}

	h.mu.Lock()
	h.token = result.Token
	h.mu.Unlock()

	log.Info().Str("component", "upstream_gateway").Msg("session renewed")
	return nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (h *HTTPClient) get(ctx context.Context, url string, out interface{}) error {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		Get(url)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("status %d: %w", resp.StatusCode(), ErrSessionInvalid)
	case http.StatusNotFound:
		return fmt.Errorf("status 404: %w", ErrMarketNotFound)
	default:
		return fmt.Errorf("upstream returned status %d", resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}
