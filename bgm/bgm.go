// Package bgm provides an OAuth2 client for the bgm.tv authorization server.
package bgm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bgm-tracker/tracker/constant"
	"github.com/bgm-tracker/tracker/network"
	"github.com/bgm-tracker/tracker/util"
	"github.com/tidwall/gjson"
)

const (
	authorizeEndpoint = "https://bgm.tv/oauth/authorize"
	tokenEndpoint     = "https://bgm.tv/oauth/access_token"
)

// ErrNotJSON is returned when the token endpoint answers with something other than JSON.
var ErrNotJSON = errors.New("bgm.tv token endpoint returned a non-JSON response")

// Client talks to the bgm.tv token endpoint on behalf of a registered application.
type Client struct {
	AppID       string
	AppSecret   string
	CallbackURL string

	// TokenURL overrides the bgm.tv token endpoint.
	TokenURL string
	// HTTP overrides network.Client.
	HTTP *http.Client
	// Now supplies the fallback auth time when the upstream response carries no Date header.
	Now func() time.Time
}

// New returns a client for the given application credentials.
func New(appID, appSecret, callbackURL string) *Client {
	return &Client{
		AppID:       appID,
		AppSecret:   appSecret,
		CallbackURL: callbackURL,
	}
}

// AuthorizeURL is where users are sent to grant the application access to their bgm.tv account.
func (c *Client) AuthorizeURL() string {
	v := url.Values{}
	v.Set("client_id", c.AppID)
	v.Set("response_type", "code")
	v.Set("redirect_uri", c.CallbackURL)
	return authorizeEndpoint + "?" + v.Encode()
}

// ExchangeCode trades an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("client_id", c.AppID)
	values.Set("client_secret", c.AppSecret)
	values.Set("code", code)
	values.Set("redirect_uri", c.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// Refresh renews an access token. bgm.tv expects the refresh grant as a JSON body.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.AppID,
		"client_secret": c.AppSecret,
		"refresh_token": refreshToken,
		"redirect_uri":  c.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*TokenResponse, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgm.tv token request: %w", err)
	}
	defer util.Ignore(resp.Body.Close)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("%w (status %d)", ErrNotJSON, resp.StatusCode)
	}

	date, err := http.ParseTime(resp.Header.Get("Date"))
	if err != nil {
		date = c.now()
	}

	return &TokenResponse{Body: body, Date: date, StatusCode: resp.StatusCode}, nil
}

func (c *Client) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return tokenEndpoint
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return network.Client
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
