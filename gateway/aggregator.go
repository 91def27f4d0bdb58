package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/resilience"
)

// FanoutConfig bounds the concurrency of aggregate sub-calls.
type FanoutConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults fills unset fields.
func (c *FanoutConfig) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 64
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Second
	}
}

// ErrorMarker stands in for a failed sub-result.
type ErrorMarker struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// SearchResult is the global search response.
type SearchResult struct {
	Query     string                 `json:"query"`
	Items     json.RawMessage        `json:"items,omitempty"`
	Lists     json.RawMessage        `json:"lists,omitempty"`
	Errors    map[string]ErrorMarker `json:"errors,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Dashboard is the per-user dashboard response.
type Dashboard struct {
	TotalLists          int                    `json:"totalLists"`
	ActiveLists         int                    `json:"activeLists"`
	CompletedLists      int                    `json:"completedLists"`
	TotalItemsInLists   int                    `json:"totalItemsInLists"`
	PurchasedItems      int                    `json:"purchasedItems"`
	EstimatedGrandTotal float64                `json:"estimatedGrandTotal"`
	CategoriesAvailable json.RawMessage        `json:"categoriesAvailable,omitempty"`
	Errors              map[string]ErrorMarker `json:"errors,omitempty"`
	Timestamp           time.Time              `json:"timestamp"`
}

// Aggregator composes several forwarded calls into one response. Every
// sub-call goes through the Forwarder, so it shares breakers and registry
// resolution with the Router.
type Aggregator struct {
	forwarder *Forwarder
	bulkhead  *resilience.Bulkhead
	log       *logger.Logger
	now       func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(fwd *Forwarder, cfg FanoutConfig, log *logger.Logger) *Aggregator {
	cfg.ApplyDefaults()
	return &Aggregator{
		forwarder: fwd,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "aggregator",
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		}),
		log: log.WithComponent("aggregator"),
		now: time.Now,
	}
}

type subCall struct {
	name        string
	destination string
	req         OutboundRequest
}

type subResult struct {
	body json.RawMessage
	err  *apperrors.AppError
}

// fanOut runs calls concurrently. Results are index-aligned with calls.
func (a *Aggregator) fanOut(ctx context.Context, calls []subCall) []subResult {
	results := make([]subResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.bulkhead.Execute(ctx, func() error {
				body, err := a.call(ctx, call)
				results[i].body = body
				return err
			})
			if err != nil {
				results[i].err = subCallError(call.destination, err)
				a.log.WithContext(ctx).Warn("Aggregate sub-call failed", map[string]interface{}{
					"part":        call.name,
					"destination": call.destination,
					"error":       err.Error(),
				})
			}
		}()
	}
	wg.Wait()
	return results
}

func (a *Aggregator) call(ctx context.Context, call subCall) (json.RawMessage, error) {
	resp, err := a.forwarder.Call(ctx, call.destination, call.req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, apperrors.Downstream(call.destination, resp.StatusCode, resp.Body, resp.ContentType())
	}
	body := bytes.TrimSpace(resp.Body)
	if !json.Valid(body) {
		return nil, apperrors.New(apperrors.ErrCodeDownstream,
			fmt.Sprintf("%s returned a non-JSON body", call.destination), http.StatusBadGateway).
			WithDetail("service", call.destination)
	}
	return json.RawMessage(body), nil
}

func subCallError(destination string, err error) *apperrors.AppError {
	if apperrors.Is(err, resilience.ErrBulkheadFull) || apperrors.Is(err, resilience.ErrBulkheadTimeout) {
		return apperrors.ServiceUnavailable(destination).WithCause(err)
	}
	return apperrors.From(err)
}

func marker(err *apperrors.AppError) ErrorMarker {
	return ErrorMarker{Code: err.Code, Message: err.Message}
}

func authHeaders(header http.Header) http.Header {
	h := http.Header{"Accept": []string{"application/json"}}
	for _, name := range []string{"Authorization", "X-Request-Id"} {
		if v := header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	return h
}

// Search queries item-service and list-service in parallel. A failed
// part is replaced by an error marker; the search itself still succeeds.
func (a *Aggregator) Search(ctx context.Context, query string, inbound http.Header) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.MissingField("q")
	}
	raw := url.Values{"q": []string{query}}.Encode()
	headers := authHeaders(inbound)

	results := a.fanOut(ctx, []subCall{
		{name: "items", destination: ItemService, req: OutboundRequest{Method: http.MethodGet, Path: "/search", RawQuery: raw, Headers: headers}},
		{name: "lists", destination: ListService, req: OutboundRequest{Method: http.MethodGet, Path: "/lists/search", RawQuery: raw, Headers: headers}},
	})

	out := &SearchResult{Query: query, Timestamp: a.now().UTC()}
	for i, part := range []string{"items", "lists"} {
		res := results[i]
		if res.err != nil {
			if out.Errors == nil {
				out.Errors = make(map[string]ErrorMarker)
			}
			out.Errors[part] = marker(res.err)
			continue
		}
		if part == "items" {
			out.Items = res.body
		} else {
			out.Lists = res.body
		}
	}
	return out, nil
}

type listDoc struct {
	Status string `json:"status"`
	Items  []struct {
		Purchased bool `json:"purchased"`
	} `json:"items"`
	Summary *struct {
		EstimatedTotal float64 `json:"estimatedTotal"`
	} `json:"summary"`
}

// Dashboard summarizes the caller's lists. list-service is critical: its
// failure fails the request. item-service only contributes categories and
// degrades to an error marker.
func (a *Aggregator) Dashboard(ctx context.Context, inbound http.Header) (*Dashboard, error) {
	headers := authHeaders(inbound)
	results := a.fanOut(ctx, []subCall{
		{name: "lists", destination: ListService, req: OutboundRequest{Method: http.MethodGet, Path: "/lists", Headers: headers}},
		{name: "categories", destination: ItemService, req: OutboundRequest{Method: http.MethodGet, Path: "/categories", Headers: headers}},
	})

	listsRes, catsRes := results[0], results[1]
	if listsRes.err != nil {
		return nil, listsRes.err
	}
	lists, err := decodeLists(listsRes.body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDownstream, "list-service returned an unexpected payload", http.StatusBadGateway).
			WithDetail("service", ListService).
			WithCause(err)
	}

	out := &Dashboard{TotalLists: len(lists), Timestamp: a.now().UTC()}
	var grandTotal float64
	for _, l := range lists {
		switch l.Status {
		case "active":
			out.ActiveLists++
		case "completed":
			out.CompletedLists++
		}
		out.TotalItemsInLists += len(l.Items)
		for _, it := range l.Items {
			if it.Purchased {
				out.PurchasedItems++
			}
		}
		if l.Summary != nil {
			grandTotal += l.Summary.EstimatedTotal
		}
	}
	out.EstimatedGrandTotal = roundTo(grandTotal, 2)

	if catsRes.err != nil {
		out.Errors = map[string]ErrorMarker{"categories": marker(catsRes.err)}
	} else {
		out.CategoriesAvailable = catsRes.body
	}
	return out, nil
}

// decodeLists accepts a bare array or a {"data": [...]} envelope.
func decodeLists(body json.RawMessage) ([]listDoc, error) {
	var lists []listDoc
	if err := json.Unmarshal(body, &lists); err == nil {
		return lists, nil
	}
	var envelope struct {
		Data []listDoc `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// roundTo rounds half away from zero at the given number of decimals.
func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
