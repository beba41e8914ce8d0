package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/maltedev/catalog-scraper/internal/ratelimit"
)

const (
	defaultAcceptLanguage = "en-US,en;q=0.9,es-MX;q=0.8,es;q=0.7"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

type Options struct {
	Timeout          time.Duration
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	RotateUserAgents bool
	UserAgents       []string
	Headers          map[string]string
	MaxBodyBytes     int64
}

func DefaultOptions() Options {
	return Options{
		Timeout:          15 * time.Second,
		MaxAttempts:      3,
		BackoffBase:      500 * time.Millisecond,
		BackoffMax:       5 * time.Second,
		RotateUserAgents: true,
		UserAgents:       DefaultUserAgents(),
		MaxBodyBytes:     10 * 1024 * 1024,
	}
}

func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}

// Result is the outcome of one Do call. Err is nil only on a 200 response.
type Result struct {
	URL        string
	Body       string
	StatusCode int
	Attempts   int
	Err        error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) Retries() int {
	if r.Attempts <= 1 {
		return 0
	}
	return r.Attempts - 1
}

// Fetcher issues paced GET requests with identity rotation and bounded
// retries. It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	opts    Options
	pacer   *ratelimit.Pacer
	metrics *observability.Metrics
	logger  *slog.Logger
	sleep   ratelimit.SleepFunc
	jitter  func() float64
	pick    func(n int) int
}

func New(opts Options, pacer *ratelimit.Pacer, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultOptions().MaxBodyBytes
	}
	if pacer == nil {
		pacer = ratelimit.NewPacer(0, 0)
	}

	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		pacer:   pacer,
		metrics: metrics,
		logger:  logger.With("component", "fetcher"),
		sleep:   ratelimit.Sleep,
		jitter:  rand.Float64,
		pick:    rand.Intn,
	}
}

// WithSleep replaces the backoff sleep, mainly for tests.
func (f *Fetcher) WithSleep(fn ratelimit.SleepFunc) *Fetcher {
	f.sleep = fn
	return f
}

func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch returns the decoded page, or false on any failure. The failure
// detail is logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	res := f.Do(ctx, url)
	if !res.OK() {
		f.logger.Warn("fetch failed",
			"url", url,
			"status", res.StatusCode,
			"attempts", res.Attempts,
			"error", res.Err,
		)
		return "", false
	}
	return res.Body, true
}

// Do runs the retry loop and keeps the classified failure.
func (f *Fetcher) Do(ctx context.Context, url string) Result {
	res := Result{URL: url}

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		res.Attempts = attempt

		body, status, err := f.attempt(ctx, url)
		res.StatusCode = status
		res.Err = err

		if err == nil {
			f.metrics.ObserveAttempt(observability.OutcomeSuccess)
			res.Body = body
			return res
		}

		transient := IsTransient(err)
		f.metrics.ObserveAttempt(outcome(err, transient))

		if !transient {
			return res
		}

		if attempt == f.opts.MaxAttempts {
			break
		}

		wait := Backoff(attempt, f.opts.BackoffBase, f.opts.BackoffMax, f.jitter())
		f.metrics.ObserveRetry()
		f.logger.Debug("retrying after transient failure",
			"url", url,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)

		if sleepErr := f.sleep(ctx, wait); sleepErr != nil {
			res.Err = sleepErr
			return res
		}
	}

	res.Err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, res.Attempts, res.Err)
	return res
}

func (f *Fetcher) attempt(ctx context.Context, url string) (string, int, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header = f.Headers()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	resp.Body.Close()

	// pacing applies to every response, whatever its status
	if err := f.pacer.Pause(ctx); err != nil {
		return "", resp.StatusCode, err
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, &StatusError{Code: resp.StatusCode, URL: url}
	}

	if readErr != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", readErr)
	}

	return decode(raw, resp.Header.Get("Content-Type")), resp.StatusCode, nil
}

// Headers builds the request headers: configured headers, then the
// identity, then language and accept defaults when not already set.
func (f *Fetcher) Headers() http.Header {
	h := make(http.Header, len(f.opts.Headers)+3)
	for k, v := range f.opts.Headers {
		h.Set(k, v)
	}

	if f.opts.RotateUserAgents {
		h.Set("User-Agent", f.opts.UserAgents[f.pick(len(f.opts.UserAgents))])
	} else if h.Get("User-Agent") == "" {
		h.Set("User-Agent", f.opts.UserAgents[0])
	}

	if h.Get("Accept-Language") == "" {
		h.Set("Accept-Language", defaultAcceptLanguage)
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", defaultAccept)
	}

	return h
}

// Backoff is the wait before retry n (1-based): base*2^(n-1) plus
// jitter*base, capped at ceiling. jitter is expected in [0, 1).
func Backoff(retry int, base, ceiling time.Duration, jitter float64) time.Duration {
	if retry < 1 {
		retry = 1
	}

	d := float64(base)*math.Pow(2, float64(retry-1)) + jitter*float64(base)
	if ceiling > 0 && d > float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

// decode prefers the declared charset, then sniffing, then UTF-8. A declared
// UTF-8 that the body does not satisfy is ignored.
func decode(body []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" && !utf8.Valid(body) {
		enc, name, certain = charset.DetermineEncoding(body, "")
	}
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body)
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}

func outcome(err error, transient bool) string {
	if StatusCode(err) == 0 {
		return observability.OutcomeNetwork
	}
	if transient {
		return observability.OutcomeTransient
	}
	return observability.OutcomeTerminal
}
