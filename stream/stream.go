// Package stream talks to the Stream Chat server API: profile upserts,
// client-token issuance and the administrative user wipe.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UpsertedUser is the profile slice pushed to the chat provider.
type UpsertedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// ChatProvider is the external chat/video service the account and chat
// services depend on.
type ChatProvider interface {
	UpsertUser(ctx context.Context, user UpsertedUser) error
	CreateToken(userID string) (string, error)
	// DeleteAllUsers hard-deletes every remote user except the reserved
	// system account and returns how many were removed.
	DeleteAllUsers(ctx context.Context) (int, error)
}

// Client implements ChatProvider over the Stream REST API.
type Client struct {
	apiKey         string
	apiSecret      string
	baseURL        string
	reservedUserID string
	httpClient     *http.Client
}

func NewClient(apiKey, apiSecret, baseURL, reservedUserID string) *Client {
	return &Client{
		apiKey:         apiKey,
		apiSecret:      apiSecret,
		baseURL:        baseURL,
		reservedUserID: reservedUserID,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateToken signs a Stream client token for the given user. Stream user
// tokens are plain HS256 JWTs over the API secret with a user_id claim.
func (c *Client) CreateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
	})
	return token.SignedString([]byte(c.apiSecret))
}

// serverToken authenticates this backend to the Stream API.
func (c *Client) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"server": true,
	})
	return token.SignedString([]byte(c.apiSecret))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(data)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), buf)
	if err != nil {
		return nil, err
	}

	auth, err := c.serverToken()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("stream-auth-type", "jwt")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stream: %s %s returned %d: %s", method, path, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) UpsertUser(ctx context.Context, user UpsertedUser) error {
	payload := map[string]map[string]UpsertedUser{
		"users": {user.ID: user},
	}
	_, err := c.do(ctx, http.MethodPost, "/users", nil, payload)
	return err
}

func (c *Client) queryUsers(ctx context.Context) ([]UpsertedUser, error) {
	payload, err := json.Marshal(map[string]any{
		"filter_conditions": map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("payload", string(payload))

	data, err := c.do(ctx, http.MethodGet, "/users", query, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Users []UpsertedUser `json:"users"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

func (c *Client) deleteUser(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("hard_delete", "true")
	query.Set("mark_messages_deleted", "true")
	_, err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), query, nil)
	return err
}

func (c *Client) DeleteAllUsers(ctx context.Context) (int, error) {
	users, err := c.queryUsers(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, u := range users {
		if u.ID == c.reservedUserID {
			continue
		}
		if err := c.deleteUser(ctx, u.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
