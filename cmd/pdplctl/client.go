package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiError is a decoded error envelope plus the HTTP status it rode in on.
type apiError struct {
	Status    int
	Tag       string `json:"error"`
	Message   string `json:"message"`
	MessageVi string `json:"message_vi"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Tag)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// ExitCode maps the HTTP status to the CLI exit-code convention.
func (e *apiError) ExitCode() int {
	switch e.Status {
	case http.StatusBadRequest, http.StatusConflict:
		return 2
	case http.StatusUnauthorized, http.StatusForbidden:
		return 3
	case http.StatusNotFound:
		return 4
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return 6
	default:
		return 5
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string) *client {
	return &client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// do sends one request and decodes the JSON response into out (when non-nil).
// Non-2xx responses come back as *apiError.
func (c *client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// download streams a response body to w without JSON decoding.
func (c *client) download(path string, w io.Writer) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", c.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
