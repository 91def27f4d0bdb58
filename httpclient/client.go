package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Client sends requests over a pooled transport and classifies what went
// wrong. It never retries.
type Client struct {
	http    *http.Client
	maxBody int64
	agent   string
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = cfg.IdlePerHost
	return &Client{
		http:    &http.Client{Transport: tr, Timeout: cfg.Timeout},
		maxBody: cfg.MaxResponseBytes,
		agent:   cfg.UserAgent,
	}, nil
}

// Do sends req once. Any reply is returned; a non-2xx status also yields a
// KindStatus *Error. Without a reply only the error is returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: err}
	}
	if req.RawQuery != "" {
		hreq.URL.RawQuery = req.RawQuery
	}
	for name, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(name, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", c.agent)
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = hresp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, c.maxBody+1))
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > c.maxBody {
		return nil, &Error{Kind: KindTooLarge, Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}

	resp := &Response{StatusCode: hresp.StatusCode, Header: hresp.Header, Body: data}
	if err := statusError(hresp.StatusCode); err != nil {
		return resp, err
	}
	return resp, nil
}

func transportError(ctx context.Context, err error) *Error {
	var ne net.Error
	switch {
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.As(err, &ne) && ne.Timeout():
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindConnection, Err: err}
	}
}
