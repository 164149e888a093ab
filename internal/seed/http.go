package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/ranked/internal/domain/model"
)

// Row is one /ranking row as served over the wire.
type Row struct {
	Player struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
	} `json:"player"`
	Record struct {
		RankPosition int    `json:"rank_position"`
		Value        uint64 `json:"value"`
	} `json:"record"`
}

// HTTPClient wraps http.Client with the server base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET request and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// fetchRanking pages through one ranking until a short page.
func (c *HTTPClient) fetchRanking(ctx context.Context, kind model.Kind, tr model.TimeRange, pageSize int) ([]Row, int, error) {
	var (
		rows  []Row
		pages int
	)
	for offset := 0; ; offset += pageSize {
		var page []Row
		q := url.Values{
			"type":       {kind.String()},
			"time_range": {tr.String()},
			"offset":     {strconv.Itoa(offset)},
			"limit":      {strconv.Itoa(pageSize)},
		}
		if err := c.getJSON(ctx, "/ranking", q, &page); err != nil {
			return nil, pages, err
		}
		pages++
		rows = append(rows, page...)
		if len(page) < pageSize {
			return rows, pages, nil
		}
	}
}

type loopStats struct {
	Loop struct {
		Passes          uint64 `json:"passes"`
		LastPassStarted string `json:"lastPassStarted"`
	} `json:"loop"`
}

// lastPassStarted returns when the server's latest completed pass began.
func (c *HTTPClient) lastPassStarted(ctx context.Context) (time.Time, error) {
	var st loopStats
	if err := c.getJSON(ctx, "/stats", nil, &st); err != nil {
		return time.Time{}, err
	}
	if st.Loop.LastPassStarted == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, st.Loop.LastPassStarted)
}
