package client

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"mediacrawl/internal/platform/accountpool"
	"mediacrawl/internal/platform/signsrv"
)

// AccountPool supplies account+proxy bindings and accepts ban reports.
// Implemented by internal/platform/accountpool.
type AccountPool interface {
	Acquire(ctx context.Context) (*accountpool.Binding, error)
	InvalidateAccount(ctx context.Context, acct accountpool.Account)
	InvalidateProxy(ctx context.Context, proxy *accountpool.Proxy)
	RefreshProxy(ctx context.Context, acct accountpool.Account) (*accountpool.Proxy, error)
	Release(binding *accountpool.Binding)
}

// Signer computes the anti-crawl headers for one request.
// Implemented by internal/platform/signsrv.
type Signer interface {
	Sign(ctx context.Context, uri, cookies string) (*signsrv.Signature, error)
}

// Session is the account+proxy pair currently bound to one client. It is
// owned by the executor and replaced wholesale on rotation, never patched
// field by field.
type Session struct {
	Binding *accountpool.Binding
	Valid   bool
}

func (s *Session) Cookies() string {
	if s == nil || s.Binding == nil {
		return ""
	}
	return s.Binding.Account.Cookies
}

// Content kinds the platform serves.
const (
	ContentAnswer  = "answer"
	ContentArticle = "article"
	ContentVideo   = "zvideo"
)

// ContentItem is one decoded record from a listing page. Raw keeps the
// untouched server JSON for downstream consumers; the typed fields are only
// what the crawl itself needs to route on.
type ContentItem struct {
	ID    string
	Type  string
	Title string
	Raw   json.RawMessage
}

// CommentItem is one decoded comment. ChildCount decides whether the tree
// walker descends into its replies.
type CommentItem struct {
	ID         string
	ContentID  string
	Content    string
	ChildCount int
	Raw        json.RawMessage
}

// flexID accepts both JSON strings and numbers; the platform is not
// consistent about which one an id field is.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 1 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

func itoa(i int) string { return strconv.Itoa(i) }
