// Package laads is a client for the NASA LAADS DAAC archive that publishes
// Black Marble files.
package laads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Client handles communication with the LAADS archive. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	token      string
	aoi        string
	httpClient *http.Client
	logger     *slog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	listing map[string]Listing
}

// NewClient creates a new LAADS client. The timeout bounds a whole request,
// including reading a downloaded file.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  slog.Default(),
		listing: make(map[string]Listing),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithToken sets the bearer token sent with downloads.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithAreaOfInterest narrows listings to a bounding box.
func (c *Client) WithAreaOfInterest(west, south, east, north float64) *Client {
	c.aoi = AreaOfInterest(west, south, east, north)
	return c
}

// Files lists the archive files of a product for one archive date
// (YYYY-MM-DD). Listings are cached; concurrent callers asking for the same
// listing share one request.
func (c *Client) Files(ctx context.Context, product, date string) (Listing, error) {
	key := product + "/" + date

	c.mu.Lock()
	cached, ok := c.listing[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// The shared request must not inherit the first caller's deadline.
		lctx := context.WithoutCancel(ctx)
		if timeout := c.httpClient.Timeout; timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, timeout)
			defer cancel()
		}

		l, err := c.fetchListing(lctx, product, date)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.listing[key] = l
		c.mu.Unlock()
		return l, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "shared archive listing", slog.String("key", key))
		}
		return res.Val.(Listing), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) fetchListing(ctx context.Context, product, date string) (Listing, error) {
	listURL, err := c.buildFilesURL(product, date)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing URL: %w", err)
	}

	c.logger.DebugContext(ctx, "listing archive files",
		slog.String("url", listURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "blackmarble/1.0")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "archive listing request failed",
			slog.String("error", err.Error()),
			slog.String("url", listURL),
		)
		return nil, fmt.Errorf("archive listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, product+" "+date); err != nil {
		// An unknown date or product is reported as not found.
		return nil, err
	}

	var listing Listing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode archive listing",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: failed to decode archive listing: %v", ErrTransient, err)
	}

	c.logger.DebugContext(ctx, "archive listing completed",
		slog.String("product", product),
		slog.String("date", date),
		slog.Int("file_count", len(listing)),
	)
	return listing, nil
}

// Download streams the file at fileURL (a path below the base URL or an
// absolute URL) into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	if c.token == "" {
		return 0, ErrMissingToken
	}

	target := fileURL
	if !strings.HasPrefix(fileURL, "http://") && !strings.HasPrefix(fileURL, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(fileURL, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "blackmarble/1.0")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("archive download failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fileURL); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: reading %s: %v", ErrTransient, fileURL, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("%w: short read of %s: %d of %d bytes", ErrTransient, fileURL, n, resp.ContentLength)
	}

	c.logger.DebugContext(ctx, "archive download completed",
		slog.String("file", fileURL),
		slog.Int64("bytes", n),
	)
	return n, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) buildFilesURL(product, date string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/api/v1/files"

	q := url.Values{}
	q.Set("product", product)
	q.Set("collection", Collection)
	q.Set("dateRanges", date+".."+date)
	if c.aoi != "" {
		q.Set("areaOfInterest", c.aoi)
	}
	base.RawQuery = q.Encode()

	return base.String(), nil
}

// checkStatus converts a non-200 response into a classified error.
func checkStatus(resp *http.Response, what string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d for %s", ErrAuthentication, resp.StatusCode, what)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d for %s", ErrTileNotFound, resp.StatusCode, what)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d for %s: %s", ErrTransient, resp.StatusCode, what, detail)
	default:
		return fmt.Errorf("archive returned status %d for %s: %s", resp.StatusCode, what, detail)
	}
}
