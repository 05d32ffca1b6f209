package accountpool

import (
	"fmt"
	"net/url"
	"time"
)

// Account is a platform login identity. The cookie string is the whole
// authenticated cookie jar captured at login time.
type Account struct {
	Name    string `yaml:"name" json:"name"`
	Cookies string `yaml:"cookies" json:"cookies"`
}

// Proxy is an outbound egress endpoint leased for a bounded window. An
// expired proxy must never carry a request; the executor checks ExpiresAt
// before every call.
type Proxy struct {
	Host      string    `yaml:"host" json:"host"`
	Port      int       `yaml:"port" json:"port"`
	Username  string    `yaml:"username" json:"username,omitempty"`
	Password  string    `yaml:"password" json:"password,omitempty"`
	ExpiresAt time.Time `yaml:"-" json:"expires_at"`
}

func (p *Proxy) Expired() bool {
	return !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt)
}

func (p *Proxy) Key() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL renders the proxy for http.Transport.
func (p *Proxy) URL() *url.URL {
	u := &url.URL{Scheme: "http", Host: p.Key()}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Binding pairs an account with its leased proxy. Proxy is nil when the
// pool runs without egress proxies.
type Binding struct {
	Account Account
	Proxy   *Proxy
}
