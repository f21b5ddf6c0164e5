// Package dexcom is a client for the Dexcom Share API.
package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
)

// Dexcom Share API endpoints (US region)
const (
	BaseURL   = "https://share2.dexcom.com/ShareWebServices/Services"
	BaseURLOU = "https://shareous1.dexcom.com/ShareWebServices/Services"
	AppID     = "d89443d2-327c-4a6f-89e5-496bbb0317db"
)

// ErrNoReadings is returned when the account has no recent glucose values.
var ErrNoReadings = errors.New("no glucose readings available")

// Client is an HTTP client for the Dexcom Share API.
type Client struct {
	Username   string
	Password   string
	BaseURL    string
	HTTPClient *http.Client
	sessionID  string
}

// NewClient creates a new Dexcom API client.
func NewClient(username, password string) *Client {
	return &Client{
		Username: username,
		Password: password,
		BaseURL:  BaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Reading represents a glucose reading from Dexcom.
type Reading struct {
	WT    string // Timestamp like "Date(1234567890000)"
	ST    string // System time
	DT    string // Display time
	Value int    // Glucose in mg/dL
	Trend string // Trend direction
}

// ToReading converts a Dexcom reading to a bloodsugar.Reading.
func (r Reading) ToReading() (bloodsugar.Reading, error) {
	trend, err := bloodsugar.TrendFromDexcom(r.Trend)
	if err != nil {
		return bloodsugar.Reading{}, err
	}
	return bloodsugar.Reading{
		Glucose:   r.Value,
		Trend:     trend,
		RawTrend:  r.Trend,
		Timestamp: time.UnixMilli(ParseTimestamp(r.WT)),
	}, nil
}

// SessionID returns the current session, empty until authenticated.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SetSessionID restores a session obtained earlier.
func (c *Client) SetSessionID(id string) {
	c.sessionID = id
}

// postJSON posts body to path and returns the response body on HTTP 200.
func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// authenticate gets a session ID from Dexcom.
func (c *Client) authenticate(ctx context.Context) error {
	// Step 1: Get account ID
	body, err := c.postJSON(ctx, "/General/AuthenticatePublisherAccount", map[string]string{
		"accountName":   c.Username,
		"password":      c.Password,
		"applicationId": AppID,
	})
	if err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}

	var accountID string
	if err := json.Unmarshal(body, &accountID); err != nil {
		return fmt.Errorf("failed to parse account ID: %w", err)
	}

	// Step 2: Get session ID
	body, err = c.postJSON(ctx, "/General/LoginPublisherAccountById", map[string]string{
		"accountId":     accountID,
		"password":      c.Password,
		"applicationId": AppID,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := json.Unmarshal(body, &c.sessionID); err != nil {
		return fmt.Errorf("failed to parse session ID: %w", err)
	}
	return nil
}

// FetchReadings fetches glucose readings from Dexcom, newest first.
func (c *Client) FetchReadings(ctx context.Context, maxCount, minutes int) ([]Reading, error) {
	if c.sessionID == "" {
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	body, err := c.fetch(ctx, maxCount, minutes)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// Session might have expired; re-authenticate once.
		c.sessionID = ""
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
		body, err = c.fetch(ctx, maxCount, minutes)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	var readings []Reading
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, fmt.Errorf("failed to parse readings: %w", err)
	}
	return readings, nil
}

func (c *Client) fetch(ctx context.Context, maxCount, minutes int) ([]byte, error) {
	path := fmt.Sprintf("/Publisher/ReadPublisherLatestGlucoseValues?sessionId=%s&minutes=%d&maxCount=%d",
		c.sessionID, minutes, maxCount)
	return c.postJSON(ctx, path, nil)
}

// Latest returns the most recent reading within the last 30 minutes.
func (c *Client) Latest(ctx context.Context) (bloodsugar.Reading, error) {
	readings, err := c.FetchReadings(ctx, 1, 30)
	if err != nil {
		return bloodsugar.Reading{}, err
	}
	if len(readings) == 0 {
		return bloodsugar.Reading{}, ErrNoReadings
	}
	return readings[0].ToReading()
}

var timestampPattern = regexp.MustCompile(`Date\((\d+)(?:[+-]\d{4})?\)`)

// ParseTimestamp parses a Dexcom timestamp "Date(1234567890000)" or
// "Date(1234567890000-0500)" to Unix milliseconds.
func ParseTimestamp(wt string) int64 {
	matches := timestampPattern.FindStringSubmatch(wt)
	if len(matches) < 2 {
		return 0
	}
	ms, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0
	}
	return ms
}
