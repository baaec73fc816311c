// Package mls is the client for a RESO Web API style MLS feed. It exposes
// OData-filtered listing and media queries and translates every transport,
// status and decode failure into a domain.TransportError.
package mls

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"mls_syncer/internal/config"
	"mls_syncer/internal/domain"
)

type Client struct {
	httpClient   *http.Client
	baseURL      string
	sourceID     string
	apiKey       string
	basicUser    string
	basicPass    string
	timeout      time.Duration
	mediaTimeout time.Duration
	logger       *slog.Logger
}

// NewClient builds a feed client from one source's configuration. A missing
// or ambiguous credential shape is a configuration error, fatal before any
// record is processed.
func NewClient(cfg config.SourceConfig, logger *slog.Logger) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	if cfg.Credentials.OAuthClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.Credentials.OAuthClientID,
			ClientSecret: cfg.Credentials.OAuthSecret,
			TokenURL:     cfg.Credentials.OAuthTokenURL,
		}
		httpClient = cc.Client(context.Background())
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		sourceID:     cfg.ID,
		apiKey:       cfg.Credentials.APIKey,
		basicUser:    cfg.Credentials.BasicUser,
		basicPass:    cfg.Credentials.BasicPassword,
		timeout:      cfg.Timeout,
		mediaTimeout: cfg.MediaTimeout,
		logger:       logger.With("source", cfg.ID),
	}, nil
}

// ID returns the source identifier this client serves.
func (c *Client) ID() string {
	return c.sourceID
}

// odataEnvelope is the standard OData result wrapper.
type odataEnvelope[T any] struct {
	Value []T `json:"value"`
}

// odataQuote wraps a value as an OData string literal, doubling embedded
// single quotes.
func odataQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FetchListings pulls records modified at or after the cursor, filtered by
// status and ordered ascending by modification time so an aborted run can
// resume from the same window without skipping records.
func (c *Client) FetchListings(ctx context.Context, cursor time.Time, statuses []string, limit int) ([]domain.RemoteListing, error) {
	filter := fmt.Sprintf("ModificationTimestamp ge %s", cursor.UTC().Format(time.RFC3339))
	if len(statuses) > 0 {
		clauses := make([]string, len(statuses))
		for i, s := range statuses {
			clauses[i] = "StandardStatus eq " + odataQuote(s)
		}
		filter += " and (" + strings.Join(clauses, " or ") + ")"
	}

	q := url.Values{}
	q.Set("$filter", filter)
	q.Set("$orderby", "ModificationTimestamp asc")
	q.Set("$top", fmt.Sprintf("%d", limit))

	var env odataEnvelope[domain.RemoteListing]
	if err := c.get(ctx, "/Property", q, c.timeout, &env); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched listings",
		"cursor", cursor,
		"count", len(env.Value),
	)

	return env.Value, nil
}

// FetchMedia returns the ordered media descriptors of one listing.
func (c *Client) FetchMedia(ctx context.Context, externalKey string) ([]domain.RemoteMedia, error) {
	q := url.Values{}
	q.Set("$filter", "ResourceRecordKey eq "+odataQuote(externalKey))
	q.Set("$orderby", "Order asc")

	var env odataEnvelope[domain.RemoteMedia]
	if err := c.get(ctx, "/Media", q, c.mediaTimeout, &env); err != nil {
		return nil, err
	}

	return env.Value, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &domain.TransportError{Op: "create request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MLSSyncer/1.0")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.TransportError{Op: "GET " + path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: "decode " + path, Err: err}
	}

	return nil
}

// authorize injects the configured credential. OAuth sources carry tokens
// on the transport instead.
func (c *Client) authorize(req *http.Request) {
	switch {
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	case c.basicUser != "" || c.basicPass != "":
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}
}
