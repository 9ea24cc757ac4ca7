package fetch

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// HTTPFetcher grabs listing pages with a plain retrying GET. It covers
// server-rendered pages and tests; JS-rendered listings need the browser
// driver instead.
type HTTPFetcher struct {
	client *retryablehttp.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(ioutil.Discard, resp.Body)
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
