package client

import (
	"net/url"
	"strconv"
)

// Cursor identifies where to resume in a paginated sequence. Exactly one
// of the three variants is in play for any given walk.
type Cursor interface {
	// Query renders the cursor as request parameters.
	Query() url.Values
}

// OffsetCursor pages by numeric offset. Used by search and the creator
// listing endpoints.
type OffsetCursor struct {
	Offset int
	Limit  int
}

func (c OffsetCursor) Query() url.Values {
	return url.Values{
		"offset": []string{strconv.Itoa(c.Offset)},
		"limit":  []string{strconv.Itoa(c.Limit)},
	}
}

// TokenCursor pages by server-issued opaque parameters. The server owns the
// cursor semantics entirely: every field is lifted verbatim from the
// previous page's next-page URL.
type TokenCursor struct {
	Params url.Values
}

func (c TokenCursor) Query() url.Values {
	out := url.Values{}
	for k, vs := range c.Params {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// CommentCursor pages the comment endpoints, which hand back an opaque
// string as the next offset rather than a number.
type CommentCursor struct {
	Offset string
	Limit  int
}

func (c CommentCursor) Query() url.Values {
	return url.Values{
		"offset": []string{c.Offset},
		"limit":  []string{strconv.Itoa(c.Limit)},
	}
}
