package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"mediacrawl/internal/logger"
)

const (
	searchPageSize  = 20
	listingPageSize = 20
	feedPageSize    = 5
)

// feedCarriedParams are the only parameter names lifted from a question
// feed's next-page URL into the following request. The server owns the
// cursor; everything outside this whitelist is dropped so a stale value
// can never be replayed.
var feedCarriedParams = []string{"cursor", "session_id", "offset", "limit", "order"}

// Options configures one crawl client.
type Options struct {
	BaseURL string
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
	// MaxAttempts is the local retry budget before account rotation.
	MaxAttempts int
	// RetryWait is the fixed delay between local retries.
	RetryWait time.Duration
	// CrawlInterval is the politeness delay between pages of a walk.
	CrawlInterval time.Duration
	// SearchEmptyLimit is how many consecutive item-less search pages end
	// a search walk.
	SearchEmptyLimit int
	// SubReplies enables expansion of root comments into their replies.
	SubReplies bool
	UserAgent  string
}

// OnContents is the caller's sink for content listing pages.
type OnContents func(items []ContentItem) error

// Client is the crawl facade. One client owns one session at a time and
// runs one logical request at a time; run more clients for parallelism.
type Client struct {
	exec       *Executor
	interval   time.Duration
	subReplies bool
	emptyLimit int

	mu     sync.Mutex
	closed bool

	log *logger.Logger
}

func New(pool AccountPool, signer Signer, opts Options) *Client {
	return &Client{
		exec: newExecutor(pool, signer, ExecutorOptions{
			BaseURL:     opts.BaseURL,
			Timeout:     opts.Timeout,
			MaxAttempts: opts.MaxAttempts,
			RetryWait:   opts.RetryWait,
			UserAgent:   opts.UserAgent,
		}),
		interval:   opts.CrawlInterval,
		subReplies: opts.SubReplies,
		emptyLimit: opts.SearchEmptyLimit,
		log:        logger.New("CrawlClient"),
	}
}

// ready gates every public operation: reject a closed client, then make
// sure a working session is bound before the first real request goes out.
func (c *Client) ready(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.exec.ensureSession(ctx)
}

// Pong reports whether the current session still authenticates.
func (c *Client) Pong(ctx context.Context) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	return c.exec.pong(ctx)
}

// Close releases the session back to the pool. The account stays usable
// for the next borrower; closing is not a ban report.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.exec.release(context.Background())
	c.log.LogInfo("client closed")
	return nil
}

// SearchOptions narrows a search walk.
type SearchOptions struct {
	Sort         string // "" (default) | created_time | voteup
	TimeInterval string // "" | a_day | a_week | a_month | a_year
	ContentType  string // "" | answer | article | zvideo
	MaxItems     int    // 0 = unbounded
}

// Search walks the search results for a keyword, page by page, delivering
// each page to onPage and returning the full ordered result.
func (c *Client) Search(ctx context.Context, keyword string, opts SearchOptions, onPage OnContents) ([]ContentItem, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	uri := "/api/v4/search_v3"
	w := &Walker[ContentItem]{
		Fetch: func(ctx context.Context, cur Cursor) (*Page, error) {
			oc := cur.(OffsetCursor)
			params := url.Values{
				"gk_version":      []string{"gz-gaokao"},
				"t":               []string{"general"},
				"q":               []string{keyword},
				"correction":      []string{"1"},
				"offset":          []string{itoa(oc.Offset)},
				"limit":           []string{itoa(oc.Limit)},
				"lc_idx":          []string{itoa(oc.Offset)},
				"show_all_topics": []string{"0"},
				"search_source":   []string{"Filter"},
				"time_interval":   []string{opts.TimeInterval},
				"sort":            []string{opts.Sort},
				"vertical":        []string{opts.ContentType},
			}
			body, err := c.exec.Get(ctx, uri, params)
			if err != nil {
				return nil, err
			}
			return decodePage(body)
		},
		Extract:    extractSearchContents,
		Protocol:   searchProtocol{},
		Delay:      c.interval,
		MaxItems:   opts.MaxItems,
		EmptyLimit: c.emptyLimit,
		OnPage:     onPage,
		Log:        c.log,
	}

	items, err := w.Walk(ctx, OffsetCursor{Offset: 0, Limit: searchPageSize})
	c.log.LogInfof("search %q yielded %d items", keyword, len(items))
	return items, err
}

// GetAllAnswersByQuestion walks every answer under a question. The feed
// endpoint paginates with opaque server-issued cursors, so each next
// request is rebuilt from the previous page's next-page URL.
func (c *Client) GetAllAnswersByQuestion(ctx context.Context, questionID string, order string, maxAnswers int, onPage OnContents) ([]ContentItem, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if order == "" {
		order = "default"
	}

	uri := fmt.Sprintf("/api/v4/questions/%s/feeds", questionID)
	initial := TokenCursor{Params: url.Values{
		"cursor":     []string{""},
		"session_id": []string{""},
		"offset":     []string{"0"},
		"limit":      []string{itoa(feedPageSize)},
		"order":      []string{order},
	}}

	w := &Walker[ContentItem]{
		Fetch: func(ctx context.Context, cur Cursor) (*Page, error) {
			params := cur.Query()
			params.Set("platform", "desktop")
			params.Set("ws_qiangzhisafe", "1")
			body, err := c.exec.Get(ctx, uri, params)
			if err != nil {
				return nil, err
			}
			return decodePage(body)
		},
		Extract:  extractFeedAnswers,
		Protocol: tokenProtocol{uri: uri, carried: feedCarriedParams},
		Delay:    c.interval,
		MaxItems: maxAnswers,
		OnPage:   onPage,
		Log:      c.log,
	}

	items, err := w.Walk(ctx, initial)
	c.log.LogInfof("question %s yielded %d answers", questionID, len(items))
	return items, err
}

// GetAllAnswersByCreator walks a creator's answers in creation order.
func (c *Client) GetAllAnswersByCreator(ctx context.Context, urlToken string, onPage OnContents) ([]ContentItem, error) {
	return c.walkCreatorListing(ctx, urlToken, "answers", onPage)
}

// GetAllArticlesByCreator walks a creator's articles in creation order.
func (c *Client) GetAllArticlesByCreator(ctx context.Context, urlToken string, onPage OnContents) ([]ContentItem, error) {
	return c.walkCreatorListing(ctx, urlToken, "articles", onPage)
}

// GetAllVideosByCreator walks a creator's videos.
func (c *Client) GetAllVideosByCreator(ctx context.Context, urlToken string, onPage OnContents) ([]ContentItem, error) {
	return c.walkCreatorListing(ctx, urlToken, "zvideos", onPage)
}

func (c *Client) walkCreatorListing(ctx context.Context, urlToken, kind string, onPage OnContents) ([]ContentItem, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("/api/v4/members/%s/%s", urlToken, kind)
	w := &Walker[ContentItem]{
		Fetch: func(ctx context.Context, cur Cursor) (*Page, error) {
			params := cur.Query()
			params.Set("order_by", "created")
			body, err := c.exec.Get(ctx, uri, params)
			if err != nil {
				return nil, err
			}
			return decodePage(body)
		},
		Extract:  extractCreatorContents,
		Protocol: offsetProtocol{uri: uri},
		Delay:    c.interval,
		OnPage:   onPage,
		Log:      c.log,
	}

	items, err := w.Walk(ctx, OffsetCursor{Offset: 0, Limit: listingPageSize})
	c.log.LogInfof("creator %s yielded %d %s", urlToken, len(items), kind)
	return items, err
}
