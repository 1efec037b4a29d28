package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

const refreshPath = "/token/refresh/"

var errNoRefreshToken = errors.New("client: no refresh token")

// Navigator abstracts page navigation so the redirect policy is testable.
// HardNavigate is a full page load; Navigate is a client-side route change.
type Navigator interface {
	Navigate(path string)
	HardNavigate(path string)
}

// NopNavigator ignores navigation, for non-interactive consumers.
type NopNavigator struct{}

func (NopNavigator) Navigate(string)     {}
func (NopNavigator) HardNavigate(string) {}

// Client is the single point of outbound HTTP communication with the
// portal API. It attaches the stored access token to every request and
// recovers from expired tokens with exactly one refresh and one replay
// per request. Concurrent expiries share a single in-flight refresh.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *CredentialStore
	nav     Navigator
	refresh singleflight.Group
}

func New(baseURL string, creds *CredentialStore, nav Navigator) *Client {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: creds.Jar()},
		creds:   creds,
		nav:     nav,
	}
}

// Do sends one API request. The request is rebuilt from scratch for each
// attempt so the bearer header always reflects the current stored token.
func (c *Client) Do(ctx context.Context, method, path string, contentType string, body []byte) ([]byte, error) {
	status, respBody, err := c.attempt(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}

	// A 401 on the refresh endpoint itself is terminal, never retried.
	if status == http.StatusUnauthorized && path != refreshPath {
		if refreshErr := c.refreshAccessToken(ctx); refreshErr != nil {
			c.creds.Clear()
			if errors.Is(refreshErr, errNoRefreshToken) {
				return nil, decodeAPIError(status, respBody)
			}
			c.nav.HardNavigate("/login")
			return nil, refreshErr
		}
		status, respBody, err = c.attempt(ctx, method, path, contentType, body)
		if err != nil {
			return nil, err
		}
	}

	if status >= 400 {
		return nil, decodeAPIError(status, respBody)
	}
	return respBody, nil
}

func (c *Client) attempt(ctx context.Context, method, path, contentType string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if access := c.creds.AccessToken(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token and persists it. Concurrent callers share one exchange.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		refreshToken := c.creds.RefreshToken()
		if refreshToken == "" {
			return nil, errNoRefreshToken
		}

		payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
		if err != nil {
			return nil, err
		}
		status, body, err := c.attempt(ctx, http.MethodPost, refreshPath, "application/json", payload)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, decodeAPIError(status, body)
		}

		var out struct {
			Access string `json:"access"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		if out.Access == "" {
			return nil, errors.New("client: refresh response missing access token")
		}
		c.creds.SetAccessToken(out.Access)
		return nil, nil
	})
	return err
}

func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	respBody, err := c.Do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	return decodeInto(respBody, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	respBody, err := c.Do(ctx, http.MethodPatch, path, "application/json", body)
	if err != nil {
		return err
	}
	return decodeInto(respBody, out)
}

// PostMultipart uploads a file plus form fields, as the application and
// resume endpoints expect.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file []byte, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			return err
		}
		if _, err := part.Write(file); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	respBody, err := c.Do(ctx, http.MethodPost, path, writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return err
	}
	return decodeInto(respBody, out)
}

func decodeInto(body []byte, out interface{}) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
