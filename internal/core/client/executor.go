package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mediacrawl/internal/logger"
	"mediacrawl/internal/platform/accountpool"
)

const (
	defaultMaxAttempts = 3
	defaultRetryWait   = time.Second
)

var emptyBody = []byte("{}")

// Executor issues one signed request at a time over the current session.
// It is the only component that mutates the session: local retries first,
// then account+proxy rotation when the budget is spent.
type Executor struct {
	pool        AccountPool
	signer      Signer
	baseURL     string
	timeout     time.Duration
	maxAttempts int
	retryWait   time.Duration
	profile     headerProfile

	session *Session
	http    *http.Client

	log *logger.Logger
}

type ExecutorOptions struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
	UserAgent   string
}

func newExecutor(pool AccountPool, signer Signer, opts ExecutorOptions) *Executor {
	e := &Executor{
		pool:        pool,
		signer:      signer,
		baseURL:     opts.BaseURL,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		retryWait:   opts.RetryWait,
		profile:     pickProfile(),
		log:         logger.New("Executor"),
	}
	if e.timeout <= 0 {
		e.timeout = 10 * time.Second
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxAttempts
	}
	if e.retryWait < 0 {
		e.retryWait = defaultRetryWait
	}
	if opts.UserAgent != "" {
		e.profile.UserAgent = opts.UserAgent
	}
	e.bind(nil)
	return e
}

// ensureSession loops until the pool yields an account that answers the
// identity probe. Deliberately unbounded: pool health is an external
// concern, and the caller's context is the only budget.
func (e *Executor) ensureSession(ctx context.Context) error {
	if e.session != nil && e.session.Valid {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.log.LogInfo("acquiring a session from the pool")
		binding, err := e.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		e.bind(binding)
		if e.pong(ctx) {
			e.session.Valid = true
			e.log.LogInfof("session ready on account %s", binding.Account.Name)
			return nil
		}
		e.log.LogWarnf("account %s failed the identity probe, benching it", binding.Account.Name)
		e.pool.InvalidateAccount(ctx, binding.Account)
		e.pool.InvalidateProxy(ctx, binding.Proxy)
		e.bind(nil)
	}
}

// bind swaps in a whole new session. Sessions are never patched in place;
// a proxy refresh also goes through here.
func (e *Executor) bind(binding *accountpool.Binding) {
	e.session = &Session{Binding: binding}
	transport := &http.Transport{}
	if binding != nil && binding.Proxy != nil {
		transport.Proxy = http.ProxyURL(binding.Proxy.URL())
	}
	e.http = &http.Client{Transport: transport, Timeout: e.timeout}
}

// pong probes the authenticated identity endpoint. A session is usable only
// if the platform reports back who we are.
func (e *Executor) pong(ctx context.Context) bool {
	body, err := e.do(ctx, "/api/v4/me?include=email%2Cis_active%2Cis_bind_phone")
	if err != nil {
		e.log.LogWarnf("identity probe failed: %v", err)
		return false
	}
	var me struct {
		UID  flexID `json:"uid"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return false
	}
	return me.UID != "" && me.Name != ""
}

// Get runs the full request policy for one logical call: bounded local
// retries on the current session, then rotate to a fresh session and try
// exactly once more.
func (e *Executor) Get(ctx context.Context, uri string, params url.Values) ([]byte, error) {
	finalURI := uri
	if len(params) > 0 {
		finalURI = uri + "?" + params.Encode()
	}

	body, err := e.getWithRetries(ctx, finalURI)
	if err == nil {
		return body, nil
	}
	var forbidden *ForbiddenError
	if errors.As(err, &forbidden) || ctx.Err() != nil {
		return nil, err
	}

	e.log.LogWarnf("request %s failed %d times, rotating account and proxy", uri, e.maxAttempts)
	if binding := e.session.Binding; binding != nil {
		e.pool.InvalidateAccount(ctx, binding.Account)
		e.pool.InvalidateProxy(ctx, binding.Proxy)
	}
	e.bind(nil)
	if err := e.ensureSession(ctx); err != nil {
		return nil, err
	}

	body, err = e.do(ctx, finalURI)
	if err != nil {
		return nil, &DataFetchError{URI: uri, Err: err}
	}
	return body, nil
}

func (e *Executor) getWithRetries(ctx context.Context, finalURI string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		body, err := e.do(ctx, finalURI)
		if err == nil {
			return body, nil
		}
		var forbidden *ForbiddenError
		if errors.As(err, &forbidden) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt < e.maxAttempts-1 {
			sleep(ctx, e.retryWait)
		}
	}
	return nil, lastErr
}

// do issues exactly one signed request and classifies the outcome.
func (e *Executor) do(ctx context.Context, finalURI string) ([]byte, error) {
	if err := e.checkProxy(ctx); err != nil {
		return nil, err
	}

	sig, err := e.signer.Sign(ctx, finalURI, e.session.Cookies())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+finalURI, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range e.baseHeaders() {
		req.Header.Set(k, v)
	}
	req.Header.Set("cookie", e.session.Cookies())
	req.Header.Set("x-zse-96", sig.ZSE96)
	req.Header.Set("x-zst-81", sig.ZST81)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, &ForbiddenError{URI: finalURI, Body: string(body)}
	case resp.StatusCode == http.StatusNotFound:
		// Absence of a resource is a normal outcome here: a content item
		// with zero comments answers 404, not an empty list.
		return emptyBody, nil
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var probe struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	if probe.Error != nil {
		return nil, fmt.Errorf("api error: %s", probe.Error.Message)
	}
	return body, nil
}

// checkProxy re-leases the egress proxy when the current lease has run out.
// A proxy refresh keeps the same account and does not count as a failure.
func (e *Executor) checkProxy(ctx context.Context) error {
	binding := e.session.Binding
	if binding == nil || binding.Proxy == nil || !binding.Proxy.Expired() {
		return nil
	}
	e.log.LogInfof("proxy %s lease expired, refreshing", binding.Proxy.Key())
	e.pool.InvalidateProxy(ctx, binding.Proxy)
	fresh, err := e.pool.RefreshProxy(ctx, binding.Account)
	if err != nil {
		return fmt.Errorf("refresh proxy: %w", err)
	}
	valid := e.session.Valid
	e.bind(&accountpool.Binding{Account: binding.Account, Proxy: fresh})
	e.session.Valid = valid
	return nil
}

func (e *Executor) release(ctx context.Context) {
	if e.session.Binding != nil {
		e.pool.Release(e.session.Binding)
	}
	e.bind(nil)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
