package client

import (
	"context"
	"time"

	"mediacrawl/internal/logger"
)

// Protocol advances the cursor for one pagination flavor. end=true stops
// the walk; a non-nil error means the page shape made advancement
// impossible and surfaces as a ProtocolError.
type Protocol interface {
	Next(cur Cursor, pg *Page) (next Cursor, end bool, err error)
}

// Walker drives one paginated walk: fetch a page, extract its items,
// deliver them to the sink, advance the cursor, wait, repeat. Pages are
// delivered strictly in cursor order.
type Walker[T any] struct {
	Fetch    func(ctx context.Context, cur Cursor) (*Page, error)
	Extract  func(pg *Page) ([]T, error)
	Protocol Protocol
	Delay    time.Duration

	// MaxItems stops the walk once satisfied, 0 means unbounded.
	MaxItems int

	// EmptyLimit is how many consecutive zero-item pages are tolerated
	// before the walk ends. Most endpoints use 1: one structurally valid
	// page with no records means the stream is done. Search pages can
	// extract to nothing when every hit is an ad card, so that walk runs
	// with a higher limit.
	EmptyLimit int

	// OnPage receives each page's items as they arrive. Delivery is
	// best-effort: a sink failure is logged and the walk advances anyway,
	// because re-fetching delivered pages is worse than a lost callback.
	OnPage func(items []T) error

	Log *logger.Logger
}

// Walk runs the walk to exhaustion and returns everything extracted, in
// order. On mid-walk failure the items accumulated so far are returned
// alongside the error; delivered pages are never retracted. Cancelling the
// context stops the walk between pages, never mid-request.
func (w *Walker[T]) Walk(ctx context.Context, cur Cursor) ([]T, error) {
	var out []T
	emptyLimit := w.EmptyLimit
	if emptyLimit <= 0 {
		emptyLimit = 1
	}
	emptyStreak := 0

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		pg, err := w.Fetch(ctx, cur)
		if err != nil {
			return out, err
		}
		if pg == nil {
			// The platform signals exhaustion on some endpoints by
			// returning no body at all.
			return out, nil
		}

		items, err := w.Extract(pg)
		if err != nil {
			return out, err
		}
		if len(items) == 0 {
			emptyStreak++
			if emptyStreak >= emptyLimit {
				return out, nil
			}
		} else {
			emptyStreak = 0
			if w.OnPage != nil {
				if err := w.OnPage(items); err != nil && w.Log != nil {
					w.Log.LogWarnf("page sink failed, continuing walk: %v", err)
				}
			}
			out = append(out, items...)
			if w.MaxItems > 0 && len(out) >= w.MaxItems {
				return out, nil
			}
		}

		next, end, err := w.Protocol.Next(cur, pg)
		if err != nil {
			return out, err
		}
		if end {
			return out, nil
		}
		cur = next

		sleep(ctx, w.Delay)
	}
}

// offsetProtocol pages by numeric offset; the server's is_end flag is
// authoritative.
type offsetProtocol struct {
	uri string
}

func (p offsetProtocol) Next(cur Cursor, pg *Page) (Cursor, bool, error) {
	c, ok := cur.(OffsetCursor)
	if !ok {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "offset walk given a non-offset cursor"}
	}
	if pg.Paging == nil {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "page has no paging metadata"}
	}
	if pg.Paging.IsEnd {
		return nil, true, nil
	}
	return OffsetCursor{Offset: c.Offset + c.Limit, Limit: c.Limit}, false, nil
}

// searchProtocol is offset pagination without paging metadata: search pages
// carry no is_end, so exhaustion is detected purely by empty pages.
type searchProtocol struct{}

func (searchProtocol) Next(cur Cursor, pg *Page) (Cursor, bool, error) {
	c, ok := cur.(OffsetCursor)
	if !ok {
		return nil, false, &ProtocolError{Reason: "search walk given a non-offset cursor"}
	}
	if pg.Paging != nil && pg.Paging.IsEnd {
		return nil, true, nil
	}
	return OffsetCursor{Offset: c.Offset + c.Limit, Limit: c.Limit}, false, nil
}

// tokenProtocol rebuilds the next cursor entirely from the server's
// next-page URL. Only whitelisted parameter names are carried forward so a
// stale parameter from a previous page can never be replayed.
type tokenProtocol struct {
	uri     string
	carried []string
}

func (p tokenProtocol) Next(cur Cursor, pg *Page) (Cursor, bool, error) {
	if _, ok := cur.(TokenCursor); !ok {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "token walk given a non-token cursor"}
	}
	if pg.Paging == nil {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "page has no paging metadata"}
	}
	if pg.Paging.IsEnd {
		return nil, true, nil
	}
	params, err := pg.Paging.NextParams()
	if err != nil {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "next page url unparseable: " + err.Error()}
	}
	next := TokenCursor{Params: map[string][]string{}}
	for _, name := range p.carried {
		if v := params.Get(name); v != "" {
			next.Params.Set(name, v)
		}
	}
	return next, false, nil
}

// commentProtocol pages by the opaque string offset the comment endpoints
// embed in their next-page URL.
type commentProtocol struct {
	uri string
}

func (p commentProtocol) Next(cur Cursor, pg *Page) (Cursor, bool, error) {
	c, ok := cur.(CommentCursor)
	if !ok {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "comment walk given a non-comment cursor"}
	}
	if pg.Paging == nil {
		return nil, false, &ProtocolError{URI: p.uri, Reason: "page has no paging metadata"}
	}
	if pg.Paging.IsEnd {
		return nil, true, nil
	}
	return CommentCursor{Offset: pg.Paging.NextOffset(), Limit: c.Limit}, false, nil
}
