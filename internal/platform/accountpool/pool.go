package accountpool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"mediacrawl/internal/logger"

	"gopkg.in/yaml.v3"
)

// CooldownStore records benched resources with a TTL. Implemented by the
// redis platform service; tests swap in an in-memory version.
type CooldownStore interface {
	SetCooldown(ctx context.Context, key string, ttl time.Duration) error
	InCooldown(ctx context.Context, key string) (bool, error)
}

// ErrPoolExhausted is returned when every account is benched.
var ErrPoolExhausted = errors.New("account pool exhausted")

const (
	accountCooldownTTL = 24 * time.Hour
	proxyCooldownTTL   = 10 * time.Minute
	defaultProxyLease  = 5 * time.Minute
)

type seedFile struct {
	Accounts []Account `yaml:"accounts"`
	Proxies  []Proxy   `yaml:"proxies"`
	Lease    string    `yaml:"proxy_lease"`
}

// Pool hands out account+proxy bindings and tracks bans as redis cooldown
// keys, so every worker process sees the same bench.
type Pool struct {
	mu       sync.Mutex
	accounts []Account
	proxies  []Proxy
	lease    time.Duration
	nextAcct int
	nextProx int

	store CooldownStore
	log   *logger.Logger
}

// LoadFile reads the account seed file and builds a pool on top of the
// shared cooldown store.
func LoadFile(path string, store CooldownStore) (*Pool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	return New(seed.Accounts, seed.Proxies, parseLease(seed.Lease), store)
}

func New(accounts []Account, proxies []Proxy, lease time.Duration, store CooldownStore) (*Pool, error) {
	if len(accounts) == 0 {
		return nil, errors.New("no accounts configured")
	}
	if lease <= 0 {
		lease = defaultProxyLease
	}
	return &Pool{
		accounts: accounts,
		proxies:  proxies,
		lease:    lease,
		store:    store,
		log:      logger.New("AccountPool"),
	}, nil
}

func parseLease(s string) time.Duration {
	if s == "" {
		return defaultProxyLease
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultProxyLease
	}
	return d
}

// Acquire returns the next usable account paired with a fresh proxy lease.
// Accounts and proxies currently in cooldown are skipped.
func (p *Pool) Acquire(ctx context.Context) (*Binding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(p.accounts); i++ {
		acct := p.accounts[p.nextAcct%len(p.accounts)]
		p.nextAcct++
		benched, err := p.inCooldown(ctx, accountKey(acct))
		if err != nil {
			return nil, err
		}
		if benched {
			continue
		}
		proxy, err := p.leaseProxyLocked(ctx)
		if err != nil {
			return nil, err
		}
		p.log.LogInfof("acquired account %s", acct.Name)
		return &Binding{Account: acct, Proxy: proxy}, nil
	}
	return nil, ErrPoolExhausted
}

// RefreshProxy leases a new proxy for an already-bound account, used when
// the old lease expired mid-session.
func (p *Pool) RefreshProxy(ctx context.Context, acct Account) (*Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaseProxyLocked(ctx)
}

func (p *Pool) leaseProxyLocked(ctx context.Context) (*Proxy, error) {
	if len(p.proxies) == 0 {
		return nil, nil
	}
	for i := 0; i < len(p.proxies); i++ {
		candidate := p.proxies[p.nextProx%len(p.proxies)]
		p.nextProx++
		benched, err := p.inCooldown(ctx, proxyKey(&candidate))
		if err != nil {
			return nil, err
		}
		if benched {
			continue
		}
		candidate.ExpiresAt = time.Now().Add(p.lease)
		return &candidate, nil
	}
	return nil, fmt.Errorf("no usable proxy: %w", ErrPoolExhausted)
}

// InvalidateAccount benches an account, typically after a ban signal.
func (p *Pool) InvalidateAccount(ctx context.Context, acct Account) {
	p.log.LogWarnf("benching account %s for %s", acct.Name, accountCooldownTTL)
	if err := p.setCooldown(ctx, accountKey(acct), accountCooldownTTL); err != nil {
		p.log.LogError("bench account", err)
	}
}

// InvalidateProxy benches a proxy endpoint.
func (p *Pool) InvalidateProxy(ctx context.Context, proxy *Proxy) {
	if proxy == nil {
		return
	}
	p.log.LogWarnf("benching proxy %s for %s", proxy.Key(), proxyCooldownTTL)
	if err := p.setCooldown(ctx, proxyKey(proxy), proxyCooldownTTL); err != nil {
		p.log.LogError("bench proxy", err)
	}
}

// Release returns a binding without invalidating anything. Leases are
// time-bounded, so there is nothing to give back beyond logging.
func (p *Pool) Release(binding *Binding) {
	if binding != nil {
		p.log.LogDebugf("released account %s", binding.Account.Name)
	}
}

func (p *Pool) inCooldown(ctx context.Context, key string) (bool, error) {
	if p.store == nil {
		return false, nil
	}
	return p.store.InCooldown(ctx, key)
}

func (p *Pool) setCooldown(ctx context.Context, key string, ttl time.Duration) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetCooldown(ctx, key, ttl)
}

func accountKey(a Account) string { return "pool:cooldown:account:" + a.Name }
func proxyKey(p *Proxy) string    { return "pool:cooldown:proxy:" + p.Key() }
