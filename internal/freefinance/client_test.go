package freefinance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the Redis token store.
type memStore struct {
	mu     sync.Mutex
	pair   TokenPair
	code   string
	locked bool

	denyLocks int
	locks     int
	unlocks   int
}

func (s *memStore) Pair(context.Context) (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

func (s *memStore) SavePair(_ context.Context, p TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p
	return nil
}

func (s *memStore) SaveCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return nil
}

func (s *memStore) AcquireRefreshLock(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denyLocks > 0 {
		s.denyLocks--
		return false, nil
	}
	s.locks++
	s.locked = true
	return true, nil
}

func (s *memStore) ReleaseRefreshLock(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocks++
	s.locked = false
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *memStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	store := &memStore{}
	return NewClient(srv.URL, "client-id", "client-secret", store, zerolog.Nop()), store
}

func TestExchangeCode(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})
	})

	pair, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", pair.AccessToken)
	assert.Equal(t, TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"}, store.pair)
	assert.Equal(t, "the-code", store.code)
}

func TestExchangeCodeProviderError(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.ExchangeCode(context.Background(), "bad-code")
	assert.True(t, errors.Is(err, ErrNoToken))
	assert.Empty(t, store.pair.AccessToken, "nothing persisted on failure")
}

func TestRefresh(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"})
	})
	store.pair = TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"}

	tok, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok)
	assert.Equal(t, TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, store.pair)
	assert.Equal(t, 1, store.locks)
	assert.Equal(t, 1, store.unlocks)
}

func TestRefreshAdoptsConcurrentResult(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	// Another invocation refreshed and released the lock before this one
	// snapshotted the pair; the lock denial below is the tail end of that
	// invocation still being observed.
	store.pair = TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}
	store.denyLocks = 1

	tok, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok, "stored pair is adopted once the lock is free")
}

func TestRefreshWithoutStoredToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestRefreshIncompleteResponse(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at-2"}`)) // refresh token missing
	})
	store.pair = TokenPair{RefreshToken: "rt-1"}

	_, err := c.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestCustomersUsesBearer(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})
		case "/api/1.1/customers":
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[{"id":"c-1","customerNumber":"77"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	store.pair = TokenPair{RefreshToken: "rt-0"}

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	customers, err := c.Customers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "77", customers[0].CustomerNumber)
}

func TestCreateCustomerWithoutID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.CreateCustomer(context.Background(), Customer{CustomerNumber: "77"})
	assert.True(t, errors.Is(err, ErrCustomerCreate))
}

func TestCreateInvoice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1.1/invoices", r.URL.Path)
		var inv Invoice
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&inv))
		assert.Equal(t, "STAGING", inv.State)
		inv.ID = "inv-1"
		_ = json.NewEncoder(w).Encode(inv)
	})

	out, err := c.CreateInvoice(context.Background(), Invoice{State: "STAGING"})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", out.ID)
}

func TestCreateInvoiceProviderError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateInvoice(context.Background(), Invoice{})
	assert.True(t, errors.Is(err, ErrInvoiceSubmit))
}

func TestItems(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1.1/items", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"ff-1","number":"WIDGET-1"}]`))
	})

	items, err := c.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "WIDGET-1", items[0].Number)
}
