// Package rest implements the table service against a PostgREST-compatible
// HTTP endpoint: one resource per table, filters in the query string, and
// stored procedures under /rpc.
package rest

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

	"github.com/pterm/pterm"

	"castline/cli/internal/httperrors"
	"castline/cli/internal/logging"
	"castline/cli/internal/query"
)

// Service is a query.TableService speaking the PostgREST dialect.
type Service struct {
	baseURL string
	key     string
	client  *http.Client
	log     *pterm.Logger
}

var _ query.TableService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(s *Service) { s.client = c } }

// WithLogger sets the logger.
func WithLogger(l *pterm.Logger) Option { return func(s *Service) { s.log = logging.OrDiscard(l) } }

// New creates a Service rooted at baseURL. key, when set, is sent as both
// the apikey header and a bearer token.
func New(baseURL, key string, opts ...Option) *Service {
	s := &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select implements query.TableService.
func (s *Service) Select(ctx context.Context, q query.Query) (query.Result, error) {
	params := url.Values{}
	cols := strings.ReplaceAll(q.Columns, " ", "")
	if cols == "" {
		cols = "*"
	}
	params.Set("select", cols)
	addFilters(params, q.Filters)
	if q.Order != nil {
		dir := "desc"
		if q.Order.Ascending {
			dir = "asc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	if q.Range != nil {
		params.Set("offset", strconv.Itoa(q.Range.From))
		params.Set("limit", strconv.Itoa(q.Range.Limit()))
	}

	h := http.Header{}
	if q.Count != query.CountNone {
		h.Set("Prefer", "count="+string(q.Count))
	}

	var rows []query.Row
	resp, err := s.do(ctx, http.MethodGet, "/"+url.PathEscape(q.Table), params, h, nil, &rows)
	if err != nil {
		return query.Result{}, err
	}
	if rows == nil {
		rows = []query.Row{}
	}
	res := query.Result{Rows: rows}
	if q.Count != query.CountNone {
		res.Count = parseContentRange(resp.Header.Get("Content-Range"))
	}
	return res, nil
}

// Insert implements query.TableService.
func (s *Service) Insert(ctx context.Context, table string, rows []query.Row) ([]query.Row, error) {
	var out []query.Row
	h := http.Header{"Prefer": {"return=representation"}}
	_, err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(table), nil, h, rows, &out)
	return out, err
}

// Update implements query.TableService.
func (s *Service) Update(ctx context.Context, table string, values query.Row, filters []query.Filter) ([]query.Row, error) {
	params := url.Values{}
	addFilters(params, filters)
	var out []query.Row
	h := http.Header{"Prefer": {"return=representation"}}
	_, err := s.do(ctx, http.MethodPatch, "/"+url.PathEscape(table), params, h, values, &out)
	return out, err
}

// Delete implements query.TableService.
func (s *Service) Delete(ctx context.Context, table string, filters []query.Filter) ([]query.Row, error) {
	params := url.Values{}
	addFilters(params, filters)
	var out []query.Row
	h := http.Header{"Prefer": {"return=representation"}}
	_, err := s.do(ctx, http.MethodDelete, "/"+url.PathEscape(table), params, h, nil, &out)
	return out, err
}

// Call implements query.TableService.
func (s *Service) Call(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	var out json.RawMessage
	_, err := s.do(ctx, http.MethodPost, "/rpc/"+url.PathEscape(fn), nil, nil, args, &out)
	return out, err
}

func (s *Service) do(ctx context.Context, method, path string, params url.Values, h http.Header, body, out any) (*http.Response, error) {
	u := s.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range h {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.key != "" {
		req.Header.Set("apikey", s.key)
		req.Header.Set("Authorization", "Bearer "+s.key)
	}

	s.log.Trace("rest request", s.log.Args("method", method, "url", u))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, httperrors.NewStatusError(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return resp, nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], b...)
		return resp, nil
	}
	// numbers stay json.Number so bigint keys are not rounded
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// parseContentRange reads the total from "0-4/7" or "*/0". An unknown
// total ("0-4/*") yields nil.
func parseContentRange(v string) *int64 {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v[i+1:]), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
