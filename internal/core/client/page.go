package client

import (
	"encoding/json"
	"net/url"
)

// Page is the envelope shared by every paginated endpoint: an item array
// plus paging metadata. Endpoints that have nothing left to serve answer
// with an empty body instead of an explicit end flag, so a nil Page is a
// valid end-of-stream signal.
type Page struct {
	Data   []json.RawMessage `json:"data"`
	Paging *Paging           `json:"paging"`
}

// Paging is the server's cursor metadata for one page.
type Paging struct {
	IsEnd   bool   `json:"is_end"`
	IsStart bool   `json:"is_start"`
	Next    string `json:"next"`
	Totals  int    `json:"totals"`
}

// NextParams parses the next-page URL and returns its query parameters.
func (p *Paging) NextParams() (url.Values, error) {
	if p == nil || p.Next == "" {
		return nil, nil
	}
	u, err := url.Parse(p.Next)
	if err != nil {
		return nil, err
	}
	return u.Query(), nil
}

// NextOffset extracts the opaque offset carried in the next-page URL, which
// is how the comment endpoints communicate their cursor.
func (p *Paging) NextOffset() string {
	params, err := p.NextParams()
	if err != nil || params == nil {
		return ""
	}
	return params.Get("offset")
}

func decodePage(body []byte) (*Page, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var pg Page
	if err := json.Unmarshal(body, &pg); err != nil {
		return nil, err
	}
	if pg.Data == nil && pg.Paging == nil {
		return nil, nil
	}
	return &pg, nil
}
