package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/catalog/internal/articles"
)

const restPath = "/rest/v1/"

// Client talks to a PostgREST endpoint (as exposed by Supabase).
type Client struct {
	baseURL      string
	apiKey       string
	table        string
	searchColumn string
	client       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTable sets the article table name. Defaults to "articles".
func WithTable(table string) Option {
	return func(c *Client) { c.table = table }
}

// WithSearchColumn sets the indexed text column used by Search. Defaults to "fts".
func WithSearchColumn(column string) Option {
	return func(c *Client) { c.searchColumn = column }
}

// New creates a client for the project at baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		table:        "articles",
		searchColumn: "fts",
		client:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured returns whether both the endpoint and key are set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Insert writes one row and returns the inserted representation.
func (c *Client) Insert(ctx context.Context, a articles.NewArticle) (articles.Result, error) {
	body, err := json.Marshal([]articles.NewArticle{a})
	if err != nil {
		return articles.Result{}, fmt.Errorf("marshaling insert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(nil), bytes.NewReader(body))
	if err != nil {
		return articles.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	return c.do(req)
}

// Search selects rows whose search column matches %query%, newest id first,
// capped at articles.SearchLimit.
func (c *Client) Search(ctx context.Context, query string) (articles.Result, error) {
	params := url.Values{
		"select":       {"*"},
		c.searchColumn: {"fts." + articles.SearchPattern(query)},
		"order":        {"id.desc"},
		"limit":        {strconv.Itoa(articles.SearchLimit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(params), nil)
	if err != nil {
		return articles.Result{}, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

func (c *Client) tableURL(params url.Values) string {
	u := c.baseURL + restPath + url.PathEscape(c.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request) (articles.Result, error) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return articles.Result{}, fmt.Errorf("postgrest request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return articles.Result{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return articles.Result{Error: decodeError(resp.StatusCode, respBody)}, nil
	}

	data := []articles.Article{}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &data); err != nil {
			return articles.Result{}, fmt.Errorf("decoding response: %w", err)
		}
	}
	return articles.Result{Data: data}, nil
}

// decodeError turns an error response into a StoreError, falling back to the
// HTTP status when the body is not a PostgREST error object.
func decodeError(status int, body []byte) *articles.StoreError {
	var raw struct {
		Code    string  `json:"code"`
		Message string  `json:"message"`
		Details *string `json:"details"`
		Hint    *string `json:"hint"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Message == "" {
		return &articles.StoreError{
			Code:    strconv.Itoa(status),
			Message: http.StatusText(status),
			Details: strings.TrimSpace(string(body)),
		}
	}

	se := &articles.StoreError{Code: raw.Code, Message: raw.Message}
	if raw.Details != nil {
		se.Details = *raw.Details
	}
	if raw.Hint != nil {
		se.Hint = *raw.Hint
	}
	return se
}
