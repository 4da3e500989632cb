package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodySize = 2 << 20

// httpFetcher 渠道公共的 HTTP 访问
type httpFetcher struct {
	name    string
	client  *http.Client
	headers map[string]string
}

func newHTTPFetcher(name string, timeout time.Duration, userAgent string, headers map[string]string) *httpFetcher {
	h := map[string]string{"User-Agent": userAgent}
	for k, v := range headers {
		h[k] = v
	}
	return &httpFetcher{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		headers: h,
	}
}

// get 返回响应体与状态码，请求失败时 error 非空
func (f *httpFetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func networkReason(provider string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s did not respond in time, please retry later", provider)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s did not respond in time, please retry later", provider)
	}
	return fmt.Sprintf("could not reach %s, please retry later", provider)
}
