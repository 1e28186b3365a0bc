package freefinance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const apiBase = "/api/1.1"

// Client talks to the FreeFinance REST API. Safe for concurrent use; the
// access token is shared between worker goroutines.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client
	tokens       TokenStore
	log          zerolog.Logger

	mu          sync.RWMutex
	accessToken string
}

func NewClient(baseURL, clientID, clientSecret string, tokens TokenStore, log zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		tokens:       tokens,
		log:          log,
	}
}

func (c *Client) setAccessToken(tok string) {
	c.mu.Lock()
	c.accessToken = tok
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Customers returns the full customer list; FreeFinance offers no
// server-side filter on customer number.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.get(ctx, apiBase+"/customers", &out); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, cust Customer) (Customer, error) {
	var out Customer
	if err := c.post(ctx, apiBase+"/customers", cust, &out); err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrCustomerCreate, err)
	}
	if out.ID == "" {
		return Customer{}, fmt.Errorf("%w: response without id", ErrCustomerCreate)
	}
	return out, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, cust Customer) (Customer, error) {
	var out Customer
	if err := c.put(ctx, apiBase+"/customers/"+id, cust, &out); err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrCustomerUpdate, err)
	}
	return out, nil
}

// Items returns the catalog used to resolve order SKUs to item ids.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	var out []Item
	if err := c.get(ctx, apiBase+"/items", &out); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	var out Invoice
	if err := c.post(ctx, apiBase+"/invoices", inv, &out); err != nil {
		return Invoice{}, fmt.Errorf("%w: %v", ErrInvoiceSubmit, err)
	}
	return out, nil
}

// Regions lists the accounting platform's regions of a country.
func (c *Client) Regions(ctx context.Context, countryCode string) ([]Region, error) {
	var out []Region
	if err := c.get(ctx, apiBase+"/countries/"+countryCode+"/regions", &out); err != nil {
		return nil, fmt.Errorf("list regions %s: %w", countryCode, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPut, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		c.log.Error().Int("status", res.StatusCode).Str("url", req.URL.Path).
			Bytes("body", body).Msg("freefinance request failed")
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
