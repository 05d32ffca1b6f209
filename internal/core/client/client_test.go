package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(pool AccountPool, baseURL string, opts Options) *Client {
	opts.BaseURL = baseURL
	opts.MaxAttempts = 3
	opts.Timeout = 5 * time.Second
	return New(pool, &fakeSigner{}, opts)
}

func TestEnsureSessionRotatesUntilProbeSucceeds(t *testing.T) {
	st := newPlatformStub(t)
	st.meFn = func(cookie string) (int, string) {
		if cookie == "acc=a3" {
			return 200, validMe
		}
		return 200, `{"uid":"","name":""}`
	}
	pool := poolOf("a1", "a2", "a3")
	c := testClient(pool, st.server.URL, Options{})

	require.NoError(t, c.ready(context.Background()))
	assert.Equal(t, []string{"a1", "a2"}, pool.invalidatedAccounts, "each failed probe benches its account")
	assert.True(t, c.exec.session.Valid)
	assert.Equal(t, "a3", c.exec.session.Binding.Account.Name)
}

func TestEnsureSessionHonorsCallerBudget(t *testing.T) {
	pool := poolOf() // empty pool would block forever without a budget
	c := testClient(pool, "http://127.0.0.1:9", Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ready(ctx)
	require.Error(t, err)
}

func TestClosedClientRejectsOperations(t *testing.T) {
	st := newPlatformStub(t)
	pool := poolOf("a1")
	c := testClient(pool, st.server.URL, Options{})

	require.NoError(t, c.ready(context.Background()))
	require.NoError(t, c.Close())
	assert.Equal(t, 1, pool.released, "close releases the session, it does not invalidate it")
	assert.Empty(t, pool.invalidatedAccounts)

	_, err := c.Search(context.Background(), "golang", SearchOptions{}, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Close(), ErrClosed)
}

func TestSearchWalksOffsetPages(t *testing.T) {
	st := newPlatformStub(t)
	pages := map[string]string{
		"0":  `{"data":[{"type":"search_result","object":{"id":"s1","type":"answer"}},{"type":"knowledge_ad","object":{"id":"ad"}}]}`,
		"20": `{"data":[{"type":"search_result","object":{"id":"s2","type":"article"}}]}`,
		"40": `{"data":[]}`,
	}
	var offsets []string
	st.server.Config.Handler = stubMux(st, func(r offsetRequest) (int, string) {
		offsets = append(offsets, r.offset)
		return 200, pages[r.offset]
	})

	pool := poolOf("a1")
	c := testClient(pool, st.server.URL, Options{SearchEmptyLimit: 1})

	items, err := c.Search(context.Background(), "golang", SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, idsOf(items), "ad cards are filtered out")
	assert.Equal(t, []string{"0", "20", "40"}, offsets)
}

func TestSearchMaxItems(t *testing.T) {
	st := newPlatformStub(t)
	st.server.Config.Handler = stubMux(st, func(r offsetRequest) (int, string) {
		return 200, `{"data":[{"type":"search_result","object":{"id":"s` + r.offset + `","type":"answer"}}]}`
	})
	pool := poolOf("a1")
	c := testClient(pool, st.server.URL, Options{})

	items, err := c.Search(context.Background(), "golang", SearchOptions{MaxItems: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQuestionFeedCursorWalk(t *testing.T) {
	st := newPlatformStub(t)
	feedPages := map[string]string{
		"": `{"data":[{"target":{"id":"ans1","type":"answer"}}],
			"paging":{"is_end":false,"next":"https://x/feeds?cursor=c2&session_id=s1&offset=5&limit=5&order=default&junk=1"}}`,
		"c2": `{"data":[{"target":{"id":"ans2","type":"answer"}}],"paging":{"is_end":true}}`,
	}
	var sawJunk bool
	st.server.Config.Handler = stubMux(st, func(r offsetRequest) (int, string) {
		if r.query.Get("junk") != "" {
			sawJunk = true
		}
		return 200, feedPages[r.query.Get("cursor")]
	})
	pool := poolOf("a1")
	c := testClient(pool, st.server.URL, Options{})

	var pageSizes []int
	items, err := c.GetAllAnswersByQuestion(context.Background(), "q42", "", 0, func(items []ContentItem) error {
		pageSizes = append(pageSizes, len(items))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ans1", "ans2"}, idsOf(items))
	assert.Equal(t, []int{1, 1}, pageSizes)
	assert.False(t, sawJunk, "non-whitelisted params are never replayed")
}

func TestCreatorListingWalk(t *testing.T) {
	st := newPlatformStub(t)
	st.server.Config.Handler = stubMux(st, func(r offsetRequest) (int, string) {
		switch r.offset {
		case "0":
			return 200, `{"data":[{"id":"a1","type":"answer"},{"id":"a2","type":"answer"}],"paging":{"is_end":false}}`
		case "20":
			return 200, `{"data":[{"id":"a3","type":"answer"}],"paging":{"is_end":true}}`
		}
		return 500, "unexpected offset " + r.offset
	})
	pool := poolOf("a1")
	c := testClient(pool, st.server.URL, Options{})

	items, err := c.GetAllAnswersByCreator(context.Background(), "someone", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, idsOf(items))
}
