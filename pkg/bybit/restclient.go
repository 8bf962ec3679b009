package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxInstrumentPages bounds cursor paging in case the API keeps returning a cursor.
const maxInstrumentPages = 50

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// GetServerTime calls /v5/market/time. It is used as a reachability check.
func (c *RESTClient) GetServerTime(ctx context.Context) (*ServerTimeResponse, error) {
	var result ServerTimeResponse
	if err := c.get(ctx, "/v5/market/time", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetInstruments fetches every instrument of a category, following nextPageCursor.
func (c *RESTClient) GetInstruments(ctx context.Context, category string) ([]Instrument, error) {
	var out []Instrument
	cursor := ""

	for page := 0; page < maxInstrumentPages; page++ {
		query := url.Values{}
		query.Set("category", category)
		query.Set("limit", "1000")
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var result InstrumentListResponse
		if err := c.get(ctx, "/v5/market/instruments-info", query, &result); err != nil {
			return nil, err
		}
		out = append(out, result.List...)

		if result.NextPageCursor == "" || result.NextPageCursor == cursor {
			return out, nil
		}
		cursor = result.NextPageCursor
	}

	return nil, fmt.Errorf("instruments-info: more than %d pages", maxInstrumentPages)
}

func (c *RESTClient) get(ctx context.Context, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bybit error: status %d: %s", resp.StatusCode, body)
	}

	var rawResp BybitResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rawResp.RetCode != 0 {
		return fmt.Errorf("bybit error: retCode=%d retMsg=%s", rawResp.RetCode, rawResp.RetMsg)
	}

	if err := json.Unmarshal(rawResp.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
