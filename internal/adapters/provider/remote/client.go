// Package remote is an attribution provider that pulls aggregated record
// sets from an HTTP service.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/ranked/internal/domain/model"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// Client fetches attribution record sets from {base}/attributions/{kind}.
type Client struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(c *fasthttp.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithTimeout bounds requests made with a context that has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithBearerToken sends an Authorization header with every request.
func WithBearerToken(token string) Option {
	return func(cl *Client) { cl.token = strings.TrimSpace(token) }
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		baseURL: base,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         defaultTimeout,
			WriteTimeout:        defaultTimeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type playerDTO struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	LastQuit string `json:"last_quit,omitempty"`
}

type recordDTO struct {
	Player playerDTO `json:"player"`
	Value  uint64    `json:"value"`
}

// Totals returns the record set of kind over tr with values widened to uint64.
func (c *Client) Totals(ctx context.Context, kind model.Kind, tr model.TimeRange) ([]model.Record[uint64], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/attributions/" + url.PathEscape(kind.String()) + "?time_range=" + url.QueryEscape(tr.String()))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("fetch %s/%s: %w", kind, tr, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("fetch %s/%s: %w", kind, tr, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %d for %s/%s", ErrUnexpectedStatus, resp.StatusCode(), kind, tr)
	}

	var dtos []recordDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", kind, tr, err)
	}
	return toRecords(dtos)
}

func toRecords(dtos []recordDTO) ([]model.Record[uint64], error) {
	out := make([]model.Record[uint64], len(dtos))
	for i, d := range dtos {
		p, err := d.Player.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedRecord, i, err)
		}
		out[i] = model.Record[uint64]{Player: p, Value: d.Value}
	}
	return out, nil
}
