// Package httpget 以 HTTP GET 拉取引导所需的远程文件，瞬时失败按指数退避重试。
package httpget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"qnreport/internal/rate"
	"qnreport/pkg/contract"
)

// Options 为拉取器选项；零值字段使用默认。
type Options struct {
	// Timeout 为单次请求超时，默认 30s。
	Timeout time.Duration `yaml:"timeout"`
	// MaxTries 为总尝试次数（含首次），默认 3。
	MaxTries uint `yaml:"max_tries"`
	// BaseDelay 为首次重试间隔，默认 500ms。
	BaseDelay time.Duration `yaml:"base_delay"`
	// UserAgent 为请求头 User-Agent。
	UserAgent string `yaml:"user_agent"`
	// RPM 为每个主机每分钟的请求上限（含重试），0 表示不限。
	RPM int `yaml:"rpm"`
}

// Fetcher 并发安全。
type Fetcher struct {
	client    *http.Client
	maxTries  uint
	baseDelay time.Duration
	ua        string
	gate      *rate.Gate
}

// New 创建拉取器；opts 可为 nil。
func New(opts *Options) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: 30 * time.Second}, maxTries: 3, baseDelay: 500 * time.Millisecond, ua: "qnreport"}
	if opts == nil {
		return f
	}
	if opts.Timeout > 0 {
		f.client.Timeout = opts.Timeout
	}
	if opts.MaxTries > 0 {
		f.maxTries = opts.MaxTries
	}
	if opts.BaseDelay > 0 {
		f.baseDelay = opts.BaseDelay
	}
	if opts.UserAgent != "" {
		f.ua = opts.UserAgent
	}
	if opts.RPM > 0 {
		f.gate = rate.NewGate(nil, rate.Limits{RPM: opts.RPM}, nil)
	}
	return f
}

var _ contract.Fetcher = (*Fetcher)(nil)

// Fetch 返回 200 响应体，调用方负责关闭。
// 4xx 不重试；5xx、429 与网络错误重试至 MaxTries，最终以 ErrFetchFailed 包装返回。
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.baseDelay
	eb.MaxInterval = 10 * f.baseDelay

	key := rate.KeyFromURL(url)
	op := func() (io.ReadCloser, error) {
		if err := f.gate.Wait(ctx, key); err != nil {
			return nil, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %v", contract.ErrInvalidInput, err))
		}
		req.Header.Set("User-Agent", f.ua)
		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("%w: GET %s: %w", contract.ErrFetchFailed, url, err)
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		serr := fmt.Errorf("%w: GET %s: status %d", contract.ErrFetchFailed, url, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(eb), backoff.WithMaxTries(f.maxTries))
}
