package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pokebinder/backend/internal/metrics"
)

// Config is the injected catalog client configuration. Nothing in this
// package reads the environment.
type Config struct {
	BaseURL   string
	APIKey    string
	TeamID    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; <= 0 disables limiting
}

// Client issues authenticated requests against the external card catalog.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	teamID  string
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		teamID:  cfg.TeamID,
		limiter: limiter,
		log:     logger.WithField("component", "catalog"),
	}
}

// Params are the catalog query parameters shared by all list endpoints.
type Params struct {
	Page     int
	PageSize int
	Query    string // catalog query-language string, e.g. `name:pika* types:"Fire"`
	OrderBy  string
	Select   []string
}

// APIError carries the upstream status code and body text for non-2xx
// catalog responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API returned status %d: %s", e.StatusCode, e.Body)
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	TotalCount *int            `json:"totalCount"`
}

// CardPage is one page of validated catalog cards. TotalCount is nil when the
// catalog omitted it.
type CardPage struct {
	Cards      []Card
	TotalCount *int
}

// SetPage is one page of validated catalog expansions.
type SetPage struct {
	Sets       []Set
	TotalCount *int
}

// SearchCards fetches one page of cards matching p.Query.
func (c *Client) SearchCards(ctx context.Context, p Params) (*CardPage, error) {
	env, err := c.get(ctx, "/cards", p)
	if err != nil {
		return nil, err
	}

	cards, err := parseCards(env.Data)
	if err != nil {
		metrics.CatalogParseErrorsTotal.Inc()
		return nil, fmt.Errorf("failed to parse catalog cards: %w", err)
	}

	return &CardPage{Cards: cards, TotalCount: env.TotalCount}, nil
}

// SearchSets fetches one page of expansions matching p.Query.
func (c *Client) SearchSets(ctx context.Context, p Params) (*SetPage, error) {
	env, err := c.get(ctx, "/sets", p)
	if err != nil {
		return nil, err
	}

	sets, err := parseSets(env.Data)
	if err != nil {
		metrics.CatalogParseErrorsTotal.Inc()
		return nil, fmt.Errorf("failed to parse catalog sets: %w", err)
	}

	return &SetPage{Sets: sets, TotalCount: env.TotalCount}, nil
}

func (c *Client) get(ctx context.Context, path string, p Params) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.OrderBy != "" {
		q.Set("orderBy", p.OrderBy)
	}
	if len(p.Select) > 0 {
		q.Set("select", strings.Join(p.Select, ","))
	}

	reqURL := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.teamID != "" {
		req.Header.Set("X-Team-Id", c.teamID)
	}

	c.log.WithFields(logrus.Fields{"path": path, "q": p.Query, "page": p.Page}).Debug("catalog request")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer resp.Body.Close()

	metrics.CatalogRequestDuration.Observe(time.Since(start).Seconds())
	metrics.CatalogRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return &env, nil
}
