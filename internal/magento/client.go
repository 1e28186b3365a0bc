package magento

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client reads orders from the Magento REST API using a long-lived
// integration token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     zerolog.Logger

	// Retry bounds for FetchOrder. Magento commits the order record a
	// moment after the checkout webhook fires, so the first attempts may
	// legitimately 404.
	attempts int
	interval time.Duration
}

func NewClient(baseURL, token string, attempts int, interval time.Duration, log zerolog.Logger) *Client {
	if attempts <= 0 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		httpc:    &http.Client{Timeout: 15 * time.Second},
		log:      log,
		attempts: attempts,
		interval: interval,
	}
}

// ResolveEntityID returns the order's entity id. A provided entity id wins;
// otherwise the increment number is looked up via the order search endpoint.
// No network call is made when both identifiers are absent.
func (c *Client) ResolveEntityID(ctx context.Context, entityID int, incrementID string) (int, error) {
	if entityID != 0 {
		return entityID, nil
	}
	if incrementID == "" {
		return 0, ErrMissingIdentifier
	}

	orders, err := c.searchByIncrementID(ctx, incrementID)
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		if o.IncrementID == incrementID {
			return o.EntityID, nil
		}
	}
	return 0, fmt.Errorf("%w: increment_id %s", ErrOrderNotFound, incrementID)
}

// FetchOrder retrieves the full order record, retrying with exponential
// backoff and jitter until the attempt bound is hit.
func (c *Client) FetchOrder(ctx context.Context, entityID int) (*Order, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		order, err := c.getOrder(ctx, entityID)
		if err == nil {
			return order, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("entity_id", entityID).Int("attempt", attempt+1).
			Msg("order fetch failed")
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrFetchTimeout, c.attempts, lastErr)
}

// backoff doubles the base interval per attempt, capped at 30s, with up to
// 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.interval << uint(attempt-1)
	if max := 30 * time.Second; d > max || d <= 0 {
		d = max
	}
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func (c *Client) getOrder(ctx context.Context, entityID int) (*Order, error) {
	var order Order
	if err := c.get(ctx, "/rest/V1/orders/"+strconv.Itoa(entityID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) searchByIncrementID(ctx context.Context, incrementID string) ([]Order, error) {
	q := url.Values{}
	q.Set("searchCriteria[filter_groups][0][filters][0][field]", "increment_id")
	q.Set("searchCriteria[filter_groups][0][filters][0][value]", incrementID)
	q.Set("searchCriteria[filter_groups][0][filters][0][condition_type]", "eq")

	var res struct {
		Items []Order `json:"items"`
	}
	if err := c.get(ctx, "/rest/V1/orders?"+q.Encode(), &res); err != nil {
		return nil, fmt.Errorf("order search: %w", err)
	}
	return res.Items, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 2048))
		return fmt.Errorf("GET %s: status %d", req.URL.Path, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
