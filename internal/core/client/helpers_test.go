package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"mediacrawl/internal/platform/accountpool"
	"mediacrawl/internal/platform/signsrv"
)

// offsetRequest is one decoded data request seen by a stub handler.
type offsetRequest struct {
	path   string
	offset string
	query  url.Values
}

// stubMux keeps the identity probe working while routing every other
// request through dataFn.
func stubMux(st *platformStub, dataFn func(r offsetRequest) (int, string)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v4/me" {
			st.mu.Lock()
			status, body := st.meFn(r.Header.Get("cookie"))
			st.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		q := r.URL.Query()
		status, body := dataFn(offsetRequest{path: r.URL.Path, offset: q.Get("offset"), query: q})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// fakePool hands out a scripted sequence of bindings and records every
// invalidation call.
type fakePool struct {
	mu       sync.Mutex
	bindings []*accountpool.Binding
	next     int

	invalidatedAccounts []string
	invalidatedProxies  []string
	refreshed           int
	released            int
	refreshTo           *accountpool.Proxy
}

func poolOf(names ...string) *fakePool {
	p := &fakePool{}
	for _, n := range names {
		p.bindings = append(p.bindings, &accountpool.Binding{
			Account: accountpool.Account{Name: n, Cookies: "acc=" + n},
		})
	}
	return p
}

func (p *fakePool) Acquire(ctx context.Context) (*accountpool.Binding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next >= len(p.bindings) {
		return nil, accountpool.ErrPoolExhausted
	}
	b := p.bindings[p.next]
	p.next++
	return b, nil
}

func (p *fakePool) InvalidateAccount(ctx context.Context, acct accountpool.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidatedAccounts = append(p.invalidatedAccounts, acct.Name)
}

func (p *fakePool) InvalidateProxy(ctx context.Context, proxy *accountpool.Proxy) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidatedProxies = append(p.invalidatedProxies, proxy.Key())
}

func (p *fakePool) RefreshProxy(ctx context.Context, acct accountpool.Account) (*accountpool.Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshed++
	return p.refreshTo, nil
}

func (p *fakePool) Release(binding *accountpool.Binding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

// fakeSigner signs everything with fixed values.
type fakeSigner struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *fakeSigner) Sign(ctx context.Context, uri, cookies string) (*signsrv.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	return &signsrv.Signature{ZSE96: "2.0_test96", ZST81: "3.0_test81"}, nil
}
