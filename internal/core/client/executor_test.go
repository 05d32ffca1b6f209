package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mediacrawl/internal/platform/accountpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMe = `{"uid":"u-1","name":"crawler-bot"}`

// platformStub is an httptest fake for the private API: /api/v4/me answers
// the identity probe, /data answers per-account via the dataFn hook.
type platformStub struct {
	mu        sync.Mutex
	meFn      func(cookie string) (int, string)
	dataFn    func(cookie string) (int, string)
	meCalls   []string
	dataCalls []string
	server    *httptest.Server
}

func newPlatformStub(t *testing.T) *platformStub {
	t.Helper()
	st := &platformStub{
		meFn:   func(string) (int, string) { return 200, validMe },
		dataFn: func(string) (int, string) { return 200, `{"data":[],"paging":{"is_end":true}}` },
	}
	st.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("cookie")
		st.mu.Lock()
		var status int
		var body string
		if r.URL.Path == "/api/v4/me" {
			st.meCalls = append(st.meCalls, cookie)
			status, body = st.meFn(cookie)
		} else {
			st.dataCalls = append(st.dataCalls, cookie)
			status, body = st.dataFn(cookie)
		}
		st.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(st.server.Close)
	return st
}

func (st *platformStub) dataCallsFor(cookie string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, c := range st.dataCalls {
		if c == cookie {
			n++
		}
	}
	return n
}

func testExecutor(pool AccountPool, baseURL string) *Executor {
	return newExecutor(pool, &fakeSigner{}, ExecutorOptions{
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		RetryWait:   0,
	})
}

func TestExecutorRetriesThenRotates(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) {
		if cookie == "acc=a1" {
			return 500, `boom`
		}
		return 200, `{"data":[{"id":"x"}],"paging":{"is_end":true}}`
	}
	pool := poolOf("a1", "a2")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	body, err := e.Get(ctx, "/data", nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"id":"x"`)

	assert.Equal(t, 3, st.dataCallsFor("acc=a1"), "full local retry budget on the original session")
	assert.Equal(t, 1, st.dataCallsFor("acc=a2"), "exactly one attempt on the rotated session")
	assert.Equal(t, []string{"a1"}, pool.invalidatedAccounts)
}

func TestExecutorRotatedAttemptFailureIsFatal(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) { return 500, `boom` }
	pool := poolOf("a1", "a2")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	_, err := e.Get(ctx, "/data", nil)

	var dfe *DataFetchError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, 3, st.dataCallsFor("acc=a1"))
	assert.Equal(t, 1, st.dataCallsFor("acc=a2"))
}

func TestExecutorForbiddenPropagatesImmediately(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) { return 403, `banned` }
	pool := poolOf("a1", "a2")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	_, err := e.Get(ctx, "/data", nil)

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, 1, st.dataCallsFor("acc=a1"), "no retry on 403")
	assert.Empty(t, pool.invalidatedAccounts, "no automatic rotation on 403")
}

func TestExecutorNotFoundIsEmptyNotError(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) { return 404, `` }
	pool := poolOf("a1")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	body, err := e.Get(ctx, "/data", nil)
	require.NoError(t, err)

	pg, err := decodePage(body)
	require.NoError(t, err)
	assert.Nil(t, pg, "a 404 decodes to end-of-data, not an error")
	assert.Equal(t, 1, st.dataCallsFor("acc=a1"))
}

func TestExecutorAPIErrorFieldIsRetryable(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) {
		if cookie == "acc=a1" {
			return 200, `{"error":{"message":"rate limited"}}`
		}
		return 200, `{"data":[]}`
	}
	pool := poolOf("a1", "a2")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	_, err := e.Get(ctx, "/data", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, st.dataCallsFor("acc=a1"))
	assert.Equal(t, []string{"a1"}, pool.invalidatedAccounts)
}

func TestExecutorMalformedBodyIsRetryable(t *testing.T) {
	st := newPlatformStub(t)
	st.dataFn = func(cookie string) (int, string) {
		if cookie == "acc=a1" {
			return 200, `<html>interstitial</html>`
		}
		return 200, `{"data":[]}`
	}
	pool := poolOf("a1", "a2")
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	require.NoError(t, e.ensureSession(ctx))
	_, err := e.Get(ctx, "/data", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, st.dataCallsFor("acc=a1"))
}

func TestExecutorSigningFailureIsRetryable(t *testing.T) {
	st := newPlatformStub(t)
	pool := poolOf("a1", "a2")
	signer := &fakeSigner{}
	e := newExecutor(pool, signer, ExecutorOptions{
		BaseURL:     st.server.URL,
		MaxAttempts: 3,
		RetryWait:   0,
	})
	ctx := context.Background()
	require.NoError(t, e.ensureSession(ctx))

	signer.mu.Lock()
	signer.fail = fmt.Errorf("signer unreachable")
	signer.mu.Unlock()

	_, err := e.Get(ctx, "/data", nil)
	require.Error(t, err, "signing never recovered, so the request is fatal")
	assert.Equal(t, 0, st.dataCallsFor("acc=a1"), "no unsigned request ever leaves the client")
}

func TestExecutorExpiredProxyRefreshedBeforeRequest(t *testing.T) {
	st := newPlatformStub(t)
	pool := poolOf("a1")
	pool.bindings[0].Proxy = &accountpool.Proxy{
		Host:      "127.0.0.1",
		Port:      9,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	e := testExecutor(pool, st.server.URL)
	ctx := context.Background()

	// The refreshed lease has no proxy, so the probe goes out directly.
	require.NoError(t, e.ensureSession(ctx))
	body, err := e.Get(ctx, "/data", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	assert.GreaterOrEqual(t, pool.refreshed, 1)
	assert.Equal(t, []string{"127.0.0.1:9"}, pool.invalidatedProxies)
	assert.Empty(t, pool.invalidatedAccounts, "a proxy refresh is not a failure")
}

func TestExecutorPoolExhaustedSurfaces(t *testing.T) {
	st := newPlatformStub(t)
	st.meFn = func(cookie string) (int, string) { return 200, `{}` }
	pool := poolOf("a1")
	e := testExecutor(pool, st.server.URL)

	err := e.ensureSession(context.Background())
	require.ErrorIs(t, err, accountpool.ErrPoolExhausted)
	assert.Equal(t, []string{"a1"}, pool.invalidatedAccounts, "probe failure benches the account before the pool runs dry")
}
