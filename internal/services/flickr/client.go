package flickr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"showreel/internal/logging"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
)

const (
	defaultBaseURL     = "https://api.flickr.com/services/rest/"
	defaultHTTPTimeout = 30 * time.Second
	searchMethod       = "flickr.photos.search"
	// LicenseAllowList covers the Creative Commons and public-domain licenses
	// that permit reuse with attribution.
	LicenseAllowList = "1,2,3,4,5,6,9,10"
	searchExtras     = "owner_name,license,url_l"
	maxDownloadBytes = 32 << 20
)

// ErrMissingAPIKey is returned by Search when no API key is configured.
var ErrMissingAPIKey = errors.New("flickr: api key required")

// Photo describes one search result.
type Photo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	OwnerName string `json:"owner_name"`
	License   string `json:"license"`
}

// SearchRequest describes the show to search for.
type SearchRequest struct {
	Artist     string
	Venue      string
	Year       int
	MaxResults int
}

// Client queries the photo search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the REST endpoint (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.baseURL = base
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "flickr")
	}
}

// NewClient constructs a search client. The limiter may be nil.
func NewClient(apiKey string, limiter *ratelimit.Limiter, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    limiter,
		logger:     logging.NewComponentLogger(nil, "flickr"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Photos  struct {
		Photo []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			OwnerName string `json:"ownername"`
			License   any    `json:"license"`
			URLL      string `json:"url_l"`
		} `json:"photo"`
	} `json:"photos"`
}

// Search runs the query cascade and returns at most req.MaxResults unique
// photos. Only a missing API key is an error; failed queries are skipped.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Photo, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.MaxResults <= 0 {
		return nil, nil
	}
	logger := logging.WithContext(ctx, c.logger)

	seen := make(map[string]struct{})
	photos := make([]Photo, 0, req.MaxResults)
	for _, query := range SearchQueries(req.Artist, req.Venue, req.Year) {
		if len(photos) >= req.MaxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return photos, nil
		}
		batch, err := c.searchOnce(ctx, query, req.MaxResults)
		if err != nil {
			logging.WarnWithContext(logger, "photo search query failed", "photo_search_degraded",
				logging.String("query", query),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the photo api key and quota"),
				logging.String(logging.FieldImpact, "fewer archival photos"),
			)
			continue
		}
		added := 0
		for _, photo := range batch {
			if len(photos) >= req.MaxResults {
				break
			}
			if _, dup := seen[photo.ID]; dup {
				continue
			}
			seen[photo.ID] = struct{}{}
			photos = append(photos, photo)
			added++
		}
		logger.Debug("photo search query completed",
			logging.String("query", query),
			logging.Int("returned", len(batch)),
			logging.Int("added", added),
		)
	}
	return photos, nil
}

func (c *Client) searchOnce(ctx context.Context, query string, perPage int) ([]Photo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("method", searchMethod)
	params.Set("api_key", c.apiKey)
	params.Set("text", query)
	params.Set("license", LicenseAllowList)
	params.Set("extras", searchExtras)
	params.Set("content_type", "1")
	params.Set("media", "photos")
	params.Set("sort", "relevance")
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("flickr: parse base url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("flickr: request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flickr: search: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("flickr: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &services.StatusError{
			Service:    "flickr",
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("flickr: decode response: %w", err)
	}
	if decoded.Stat != "ok" {
		return nil, fmt.Errorf("flickr: api error %d: %s", decoded.Code, decoded.Message)
	}

	photos := make([]Photo, 0, len(decoded.Photos.Photo))
	for _, p := range decoded.Photos.Photo {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.URLL) == "" {
			continue
		}
		photos = append(photos, Photo{
			ID:        p.ID,
			Title:     strings.TrimSpace(p.Title),
			URL:       p.URLL,
			OwnerName: strings.TrimSpace(p.OwnerName),
			License:   licenseString(p.License),
		})
	}
	return photos, nil
}

// licenseString accepts the license field as either a JSON string or number.
func licenseString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

// Download fetches photo bytes. It returns nil when the photo is unavailable
// for any reason.
func (c *Client) Download(ctx context.Context, photoURL string) []byte {
	logger := logging.WithContext(ctx, c.logger)
	if strings.TrimSpace(photoURL) == "" {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		logger.Debug("photo download request invalid", logging.String("url", photoURL), logging.Error(err))
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("photo download failed", logging.String("url", photoURL), logging.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("photo download rejected", logging.String("url", photoURL), logging.Int("status", resp.StatusCode))
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil || len(data) == 0 {
		return nil
	}
	return data
}
