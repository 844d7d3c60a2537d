// Package roster fetches and parses the spreadsheet a campaign coordinator
// uploads: one participant per row with a name, a garment size and an
// optional coupon code.
package roster

import (
	"context"
	"fmt"
	"io"
	"net/http"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// Fetcher retrieves a stored roster document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// maxSheetBytes caps roster downloads. Rosters are people-sized lists; a
// document bigger than this is not one of ours.
const maxSheetBytes = 10 << 20

// HTTPFetcher downloads rosters over HTTP with retries on transient errors.
type HTTPFetcher struct {
	http *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil
	return &HTTPFetcher{http: retry.StandardClient()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}

	res, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch roster %s: http %d", url, res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxSheetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read roster body: %w", err)
	}
	if len(data) > maxSheetBytes {
		return nil, fmt.Errorf("roster at %s exceeds %d bytes", url, maxSheetBytes)
	}
	return data, nil
}
