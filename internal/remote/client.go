// Package remote implements the catalog.Client contract over HTTP.
//
// The client shape follows the consumed catalog service API:
//
//	GET /products?includeImage={bool}
//	GET /product/{id}?includeImage={bool}
//	PUT /product/{id}            (JSON full-record replace)
//	PUT /product/{id}            (multipart: "product" JSON part + optional
//	                              "productImage" binary part)
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// Client talks to the remote catalog service. Concurrent Get calls for the
// same product id are collapsed into a single request.
type Client struct {
	baseURL string
	http    *http.Client
	getters singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a catalog client for the given base URL. The default
// transport is otelhttp-instrumented with a 10 second timeout.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ catalog.Client = (*Client)(nil)

// getTimeout bounds the shared Get request, which is detached from any
// single caller's deadline.
const getTimeout = 10 * time.Second

// List fetches every product record.
func (c *Client) List(ctx context.Context, includeImage bool) ([]catalog.ProductRecord, error) {
	url := fmt.Sprintf("%s/products?includeImage=%s", c.baseURL, strconv.FormatBool(includeImage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var records []catalog.ProductRecord
	if err := c.do(req, "list products", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get fetches a single product record by id. Concurrent calls for one id
// share a single in-flight request per image mode. The shared request runs
// on a context detached from the leading caller, so one caller cancelling
// does not fail every caller joined to the flight; each caller still
// observes its own cancellation.
func (c *Client) Get(ctx context.Context, id string, includeImage bool) (*catalog.ProductRecord, error) {
	key := id + "/" + strconv.FormatBool(includeImage)
	v, err, _ := c.getters.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), getTimeout)
		defer cancel()

		url := fmt.Sprintf("%s/product/%s?includeImage=%s", c.baseURL, id, strconv.FormatBool(includeImage))
		req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}

		var record catalog.ProductRecord
		if err := c.do(req, "get product", &record); err != nil {
			return nil, err
		}
		return &record, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(*catalog.ProductRecord), nil
}

// Replace performs a full-record JSON PUT. The remote validates the payload;
// a stock value it refuses (for example one that would go negative) comes
// back as a *catalog.ValidationError.
func (c *Client) Replace(ctx context.Context, record catalog.ProductRecord) (*catalog.ProductRecord, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}

	url := fmt.Sprintf("%s/product/%s", c.baseURL, record.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var updated catalog.ProductRecord
	if err := c.do(req, "replace product", &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Update performs a multipart PUT: the record travels as a JSON part named
// "product"; a replacement image, when present, as a binary part named
// "productImage".
func (c *Client) Update(ctx context.Context, record catalog.ProductRecord, image *catalog.Image) (*catalog.ProductRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="product"`},
		"Content-Type":        {"application/json"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create product part")
	}
	if err := json.NewEncoder(part).Encode(record); err != nil {
		return nil, errors.Wrap(err, "encode product part")
	}

	if image != nil {
		header := textproto.MIMEHeader{
			"Content-Disposition": {fmt.Sprintf(`form-data; name="productImage"; filename=%q`, image.Name)},
		}
		if image.ContentType != "" {
			header.Set("Content-Type", image.ContentType)
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, errors.Wrap(err, "create image part")
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, errors.Wrap(err, "write image part")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "finish multipart body")
	}

	url := fmt.Sprintf("%s/product/%s", c.baseURL, record.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, &buf)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var updated catalog.ProductRecord
	if err := c.do(req, "update product", &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// do executes the request and decodes a JSON response into out. Transport
// failures map to *catalog.NetworkError, 404 to catalog.ErrNotFound and
// other non-2xx statuses to *catalog.ValidationError.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &catalog.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return catalog.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &catalog.ValidationError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: string(bytes.TrimSpace(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &catalog.NetworkError{Op: op, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
