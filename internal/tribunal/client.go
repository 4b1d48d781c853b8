package tribunal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// The court registry allows 2 requests per second per API key.
	registryRateLimit = 2
	registryRateBurst = 4
)

// CaseRecord is one row from the court registry's case feed.
type CaseRecord struct {
	ID         string `json:"id"`
	CaseNumber string `json:"caseNumber"`
	Parties    string `json:"parties"`
	Status     string `json:"status"`
	Court      string `json:"court"`
	Division   string `json:"division"`
	Date       string `json:"date"`
}

type caseEnvelope struct {
	Status string       `json:"status"`
	Result []CaseRecord `json:"result"`
}

// Client talks to the court-registry API with rate limiting so a large
// tracked-number set cannot hammer the upstream.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(registryRateLimit), registryRateBurst),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// LookupByCaseNumber fetches the registry's records for one case number.
func (c *Client) LookupByCaseNumber(ctx context.Context, number string) ([]CaseRecord, error) {
	params := url.Values{}
	params.Set("caseNumber", number)

	var envelope caseEnvelope
	if err := c.doRequest(ctx, "/cases/search", params, &envelope); err != nil {
		return nil, fmt.Errorf("failed to look up case %s: %w", number, err)
	}
	return envelope.Result, nil
}

// ListRecent fetches a page of recently published case records; used
// when the user tracks no case numbers yet.
func (c *Client) ListRecent(ctx context.Context, page, size int) ([]CaseRecord, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	var envelope caseEnvelope
	if err := c.doRequest(ctx, "/cases/recent", params, &envelope); err != nil {
		return nil, fmt.Errorf("failed to list recent cases: %w", err)
	}
	return envelope.Result, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
