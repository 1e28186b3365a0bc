package freefinance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenStore is the externally-owned durable credential store. The refresh
// lock serializes concurrent invocations racing to renew the same pair.
type TokenStore interface {
	Pair(ctx context.Context) (TokenPair, error)
	SavePair(ctx context.Context, p TokenPair) error
	SaveCode(ctx context.Context, code string) error
	AcquireRefreshLock(ctx context.Context) (bool, error)
	ReleaseRefreshLock(ctx context.Context) error
}

// ExchangeCode trades an authorization code for a token pair and persists
// it. The code itself is stored alongside, for audit.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenPair, error) {
	if err := c.tokens.SaveCode(ctx, code); err != nil {
		return TokenPair{}, fmt.Errorf("store auth code: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	pair, err := c.tokenGrant(ctx, form)
	if err != nil {
		return TokenPair{}, err
	}
	if err := c.tokens.SavePair(ctx, pair); err != nil {
		return TokenPair{}, fmt.Errorf("persist token pair: %w", err)
	}
	return pair, nil
}

// Refresh renews the stored token pair and returns the new access token.
// Only one caller performs the grant at a time; losers of the lock wait and
// read the pair the winner persisted.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	ok, err := c.tokens.AcquireRefreshLock(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh lock: %w", err)
	}
	if !ok {
		return c.awaitRefreshed(ctx)
	}
	defer func() {
		if err := c.tokens.ReleaseRefreshLock(ctx); err != nil {
			c.log.Warn().Err(err).Msg("release refresh lock")
		}
	}()

	current, err := c.tokens.Pair(ctx)
	if err != nil {
		return "", fmt.Errorf("read token pair: %w", err)
	}
	if current.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token stored", ErrNoToken)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", current.RefreshToken)
	form.Set("client_id", c.clientID)

	pair, err := c.tokenGrant(ctx, form)
	if err != nil {
		return "", err
	}
	if err := c.tokens.SavePair(ctx, pair); err != nil {
		return "", fmt.Errorf("persist token pair: %w", err)
	}

	c.setAccessToken(pair.AccessToken)
	return pair.AccessToken, nil
}

// awaitRefreshed polls the store while another invocation holds the
// refresh lock. It adopts a pair that changed under it, or, once the lock
// is free again, whatever pair the winner left behind. The winner may have
// persisted before we snapshotted the pair, so an unchanged token is not
// proof that the refresh is still in flight.
func (c *Client) awaitRefreshed(ctx context.Context) (string, error) {
	before, err := c.tokens.Pair(ctx)
	if err != nil {
		return "", fmt.Errorf("read token pair: %w", err)
	}
	for i := 0; i < 20; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		pair, err := c.tokens.Pair(ctx)
		if err != nil {
			return "", fmt.Errorf("read token pair: %w", err)
		}
		if pair.AccessToken != "" && pair.AccessToken != before.AccessToken {
			c.setAccessToken(pair.AccessToken)
			return pair.AccessToken, nil
		}

		ok, err := c.tokens.AcquireRefreshLock(ctx)
		if err != nil {
			continue
		}
		if ok {
			_ = c.tokens.ReleaseRefreshLock(ctx)
			if pair.AccessToken != "" {
				c.setAccessToken(pair.AccessToken)
				return pair.AccessToken, nil
			}
			return "", fmt.Errorf("%w: concurrent refresh left no token", ErrNoToken)
		}
	}
	return "", fmt.Errorf("%w: concurrent refresh did not complete", ErrNoToken)
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair TokenPair
	if err := c.do(req, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: incomplete response", ErrNoToken)
	}
	return pair, nil
}
