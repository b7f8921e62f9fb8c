package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark/infra/requestid"
	"github.com/shelfmark/shelfmark/infra/tracing"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

const listPageSize = 100

// InventoryDirectoryHTTP talks to the inventory service's REST surface.
// Connection errors, timeouts and 5xx responses all surface as
// ErrUpstreamUnavailable so the engine aborts instead of partially
// committing.
type InventoryDirectoryHTTP struct {
	baseURL    string
	httpClient *http.Client
}

func NewInventoryDirectoryHTTP(baseURL string, httpClient *http.Client) *InventoryDirectoryHTTP {
	return &InventoryDirectoryHTTP{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

type listResponse struct {
	Data  []protocols.InventoryItem `json:"data"`
	Total int64                     `json:"total"`
}

func (g *InventoryDirectoryHTTP) Lookup(ctx context.Context, invID string) (*protocols.InventoryItem, error) {
	resp, err := g.do(ctx, http.MethodGet, "/items/"+invID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: item %s", reservation.ErrNotFound, invID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: lookup returned status %d", reservation.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var it protocols.InventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return nil, fmt.Errorf("%w: decode lookup response: %v", reservation.ErrUpstreamUnavailable, err)
	}
	return &it, nil
}

func (g *InventoryDirectoryHTTP) ListAll(ctx context.Context) ([]protocols.InventoryItem, error) {
	var all []protocols.InventoryItem
	for page := 1; ; page++ {
		resp, err := g.do(ctx, http.MethodGet,
			"/items?page="+strconv.Itoa(page)+"&limit="+strconv.Itoa(listPageSize), nil)
		if err != nil {
			return nil, err
		}
		var body listResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: list returned status %d", reservation.ErrUpstreamUnavailable, resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: decode list response: %v", reservation.ErrUpstreamUnavailable, decodeErr)
		}
		all = append(all, body.Data...)
		if len(body.Data) < listPageSize {
			return all, nil
		}
	}
}

func (g *InventoryDirectoryHTTP) AdjustCopies(ctx context.Context, invID string, delta int) error {
	payload, err := json.Marshal(adjustRequest{Delta: delta})
	if err != nil {
		return fmt.Errorf("marshal adjust request: %w", err)
	}
	resp, err := g.do(ctx, http.MethodPost, "/items/"+invID+"/adjust", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: item %s", reservation.ErrNotFound, invID)
	case resp.StatusCode == http.StatusConflict:
		return reservation.ErrInsufficientStock
	default:
		return fmt.Errorf("%w: adjust returned status %d", reservation.ErrUpstreamUnavailable, resp.StatusCode)
	}
}

func (g *InventoryDirectoryHTTP) do(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var body *bytes.Buffer
	if payload != nil {
		body = bytes.NewBuffer(payload)
	} else {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", reservation.ErrUpstreamUnavailable, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reservation.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", reservation.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return resp, nil
}
