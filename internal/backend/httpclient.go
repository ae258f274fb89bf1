package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"castline/cli/internal/dedup"
	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/httperrors"
	"castline/cli/internal/identity"
	"castline/cli/internal/logging"
	"castline/cli/internal/sse"
)

// Header names carrying the caller's identity and request correlation.
const (
	HeaderUserUUID   = "X-User-UUID"
	HeaderPurchaseID = "X-Purchase-ID"
	HeaderRequestID  = "X-Request-ID"
)

// Client implements API over HTTP.
type Client struct {
	defaultURL    string
	privilegedURL string
	identity      identity.Provider
	http          *http.Client
	timeout       time.Duration
	userAgent     string
	log           *pterm.Logger

	// flights deduplicates Do by resolved URL. It is separate from the
	// query composer's registry since the two key spaces never overlap.
	flights dedup.Group[Result]
}

var _ API = (*Client)(nil)

// BaseURL returns the service the given identity is routed to.
func (c *Client) BaseURL(id identity.Identity) string {
	if id.Entitled() {
		return c.privilegedURL
	}
	return c.defaultURL
}

// resolve builds the full URL for d. Params are only added for GET and DELETE.
func (c *Client) resolve(id identity.Identity, d Descriptor) string {
	u := c.BaseURL(id) + "/" + strings.TrimLeft(d.Endpoint, "/")
	m := d.method()
	if (m == http.MethodGet || m == http.MethodDelete) && len(d.Params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + d.Params.Encode()
	}
	return u
}

// Request implements API. The status code is reported, not judged.
func (c *Client) Request(ctx context.Context, d Descriptor) (Result, error) {
	id, err := c.identity.Identity(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read identity: %w", err)
	}
	u := c.resolve(id, d)

	req, err := c.newRequest(ctx, id, d, u)
	if err != nil {
		return Result{}, err
	}

	if d.SSE != nil {
		c.log.Debug("stream", c.log.Args("method", req.Method, "url", u, "request_id", req.Header.Get(HeaderRequestID)))
		return Result{}, sse.Stream(ctx, c.http, req, d.SSE)
	}

	resp, err := c.send(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	return decode(resp)
}

// Do implements API. Concurrent calls resolving to the same URL share one
// round trip regardless of method or body. The timeout cancels the
// transport call and surfaces httperrors.ErrTimeout.
func (c *Client) Do(ctx context.Context, d Descriptor) (Result, error) {
	if d.SSE != nil {
		return Result{}, errors.New("streaming calls go through Request")
	}
	id, err := c.identity.Identity(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read identity: %w", err)
	}
	u := c.resolve(id, d)

	res, _, err := c.flights.Begin(ctx, u, func(ctx context.Context) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		res, err := c.roundTrip(ctx, id, d, u)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("request timed out", c.log.Args("url", u, "timeout", c.timeout.String()))
			return Result{}, cerrors.Wrap(cerrors.Timeout, d.method()+" "+u, httperrors.ErrTimeout)
		}
		return res, err
	})
	return res, err
}

func (c *Client) roundTrip(ctx context.Context, id identity.Identity, d Descriptor, u string) (Result, error) {
	req, err := c.newRequest(ctx, id, d, u)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, cerrors.Wrap(cerrors.HTTPStatus, req.Method+" "+req.URL.Path, httperrors.NewStatusError(resp))
	}
	return decode(resp)
}

func (c *Client) newRequest(ctx context.Context, id identity.Identity, d Descriptor, u string) (*http.Request, error) {
	m := d.method()
	var (
		body        io.Reader
		contentType string
	)
	if m != http.MethodGet {
		var err error
		body, contentType, err = encodeBody(d.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, m, u, body)
	if err != nil {
		return nil, err
	}
	c.setStandardHeaders(req, id)
	if d.Image {
		req.Header.Set("Accept", "image/png")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// setStandardHeaders adds correlation, user agent and, for entitled
// callers, both identity headers.
func (c *Client) setStandardHeaders(req *http.Request, id identity.Identity) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if id.Entitled() {
		req.Header.Set(HeaderUserUUID, id.UserUUID)
		req.Header.Set(HeaderPurchaseID, id.PurchaseID)
	}
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", c.log.Args(
			"method", req.Method,
			"url", req.URL.String(),
			"error", logging.Mask(err.Error()),
		))
		return nil, err
	}
	c.log.Debug("request", c.log.Args(
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"request_id", req.Header.Get(HeaderRequestID),
		"user", logging.MaskID(req.Header.Get(HeaderUserUUID)),
		"elapsed", time.Since(start).String(),
	))
	return resp, nil
}

// decode reads the body and branches on the declared content type.
func decode(resp *http.Response) (Result, error) {
	res := Result{Status: resp.StatusCode, Header: resp.Header}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mt == "image/png":
		res.Kind = KindImage
		res.Bytes = b
	case (mt == "application/json" || strings.HasSuffix(mt, "+json")) && len(strings.TrimSpace(string(b))) > 0:
		env, err := Unwrap(b)
		if err != nil {
			return Result{}, fmt.Errorf("decode %s response: %w", mt, err)
		}
		res.Kind = KindJSON
		res.JSON = env.Payload
		res.Envelope = env.Depth
	default:
		res.Kind = KindText
		res.Text = string(b)
	}
	return res, nil
}
