package client

import (
	"context"
	"fmt"
)

const commentPageSize = 10

// OnComments is the caller's sink for comment pages.
type OnComments func(items []CommentItem) error

// GetAllComments walks the full two-level comment tree of one content
// item: root comments page by page and, for every root that has replies,
// that root's children to their own exhaustion. Roots arrive in server
// order; a root's children arrive after it and never interleave with
// another root's children. The returned slice holds roots and children in
// delivery order; on mid-walk failure it holds everything delivered so far.
func (c *Client) GetAllComments(ctx context.Context, item ContentItem, onPage OnComments) ([]CommentItem, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("/api/v4/comment_v5/%ss/%s/root_comment", item.Type, item.ID)
	proto := commentProtocol{uri: uri}
	cur := Cursor(CommentCursor{Offset: "", Limit: commentPageSize})

	var all []CommentItem
	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		pg, err := c.fetchComments(ctx, uri, cur.(CommentCursor), "score")
		if err != nil {
			return all, err
		}
		if pg == nil {
			return all, nil
		}
		roots, err := extractComments(item.ID, pg)
		if err != nil {
			return all, err
		}
		if len(roots) == 0 {
			return all, nil
		}

		c.deliverComments(onPage, roots)
		all = append(all, roots...)

		// Expand each root's replies before moving to the next root page.
		// One stuck or broken child walk must not sink its siblings, so
		// child failures are logged and skipped here.
		for _, root := range roots {
			if root.ChildCount == 0 {
				continue
			}
			children, err := c.walkChildComments(ctx, root, onPage)
			all = append(all, children...)
			if err != nil {
				if ctx.Err() != nil {
					return all, err
				}
				c.log.LogWarnf("child walk for comment %s failed: %v", root.ID, err)
			}
		}

		next, end, err := proto.Next(cur, pg)
		if err != nil {
			return all, err
		}
		if end {
			return all, nil
		}
		cur = next

		sleep(ctx, c.interval)
	}
}

// walkChildComments drains the replies of one root comment. Skipped
// entirely when reply expansion is disabled by configuration.
func (c *Client) walkChildComments(ctx context.Context, root CommentItem, onPage OnComments) ([]CommentItem, error) {
	if !c.subReplies {
		return nil, nil
	}
	uri := fmt.Sprintf("/api/v4/comment_v5/comment/%s/child_comment", root.ID)
	w := &Walker[CommentItem]{
		Fetch: func(ctx context.Context, cur Cursor) (*Page, error) {
			return c.fetchComments(ctx, uri, cur.(CommentCursor), "sort")
		},
		Extract: func(pg *Page) ([]CommentItem, error) {
			return extractComments(root.ContentID, pg)
		},
		Protocol: commentProtocol{uri: uri},
		Delay:    c.interval,
		OnPage: func(items []CommentItem) error {
			c.deliverComments(onPage, items)
			return nil
		},
		Log: c.log,
	}
	return w.Walk(ctx, CommentCursor{Offset: "", Limit: commentPageSize})
}

func (c *Client) fetchComments(ctx context.Context, uri string, cur CommentCursor, order string) (*Page, error) {
	params := cur.Query()
	params.Set("order", order)
	body, err := c.exec.Get(ctx, uri, params)
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

func (c *Client) deliverComments(onPage OnComments, items []CommentItem) {
	if onPage == nil {
		return
	}
	if err := onPage(items); err != nil {
		c.log.LogWarnf("comment sink failed, continuing walk: %v", err)
	}
}
