package idealista

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"idealista-pricing/models"
	"idealista-pricing/utils"
)

const (
	DefaultTokenURL  = "https://api.idealista.com/oauth/token"
	DefaultSearchURL = "https://api.idealista.com/3.5/es/search"
)

// ErrNoToken is returned by Search when the client has not been authenticated.
var ErrNoToken = errors.New("idealista: no access token, authenticate first")

// SearchParams are the query parameters of a listing search.
type SearchParams struct {
	Center       string // "lat,lon"
	Country      string // es, it or pt
	NumPage      int
	MaxItems     int
	Distance     int // radius in meters
	PropertyType string
	Operation    string
}

// DefaultSearchParams returns the defaults of the search endpoint for center.
func DefaultSearchParams(center string) SearchParams {
	return SearchParams{
		Center:       center,
		Country:      "es",
		NumPage:      1,
		MaxItems:     50,
		Distance:     1000,
		PropertyType: "homes",
		Operation:    "sale",
	}
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("country", p.Country)
	v.Set("center", p.Center)
	v.Set("numPage", strconv.Itoa(p.NumPage))
	v.Set("maxItems", strconv.Itoa(p.MaxItems))
	v.Set("distance", strconv.Itoa(p.Distance))
	v.Set("propertyType", p.PropertyType)
	v.Set("operation", p.Operation)
	return v
}

// Client is a session against the listing search API. It holds its own
// access token; share the *Client to share the session.
type Client struct {
	httpClient *http.Client
	tokenURL   string
	searchURL  string
	logger     *utils.Logger
	token      string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for both token and search calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoints overrides the token and search URLs. Empty values keep the defaults.
func WithEndpoints(tokenURL, searchURL string) Option {
	return func(c *Client) {
		if tokenURL != "" {
			c.tokenURL = tokenURL
		}
		if searchURL != "" {
			c.searchURL = searchURL
		}
	}
}

// NewClient creates an unauthenticated Client.
func NewClient(logger *utils.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   DefaultTokenURL,
		searchURL:  DefaultSearchURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate exchanges the API key and secret for an access token using
// the client-credentials grant, stores it on the client and returns it.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     apiKey,
		ClientSecret: apiSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("idealista: authenticate: %w", err)
	}

	c.token = tok.AccessToken
	c.logger.Debug("[idealista] Token acquired, expires %s", tok.Expiry.Format(time.RFC3339))
	return c.token, nil
}

// SetToken reuses a previously issued access token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current access token, empty when unauthenticated.
func (c *Client) Token() string {
	return c.token
}

// Search fetches one page of listings. Transport errors are returned. A body
// that is not a valid search response is logged verbatim and reported as a
// nil result with a nil error, so callers must check the result.
func (c *Client) Search(ctx context.Context, p SearchParams) (*models.SearchResult, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	endpoint := c.searchURL + "?" + p.values().Encode()
	c.logger.Debug("[idealista] POST %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("idealista: build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("idealista: search page %d: %w", p.NumPage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("idealista: read search response: %w", err)
	}

	var result models.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("[idealista] Could not decode search response (HTTP %d): %v", resp.StatusCode, err)
		c.logger.Error("[idealista] Response body: %s", string(body))
		return nil, nil
	}
	return &result, nil
}

// Summary returns the paging counters of a search result.
func Summary(r *models.SearchResult) models.SearchSummary {
	return models.SearchSummary{
		Total:        r.Total,
		TotalPages:   r.TotalPages,
		ActualPage:   r.ActualPage,
		ItemsPerPage: r.ItemsPerPage,
	}
}
