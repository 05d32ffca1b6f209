package signsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mediacrawl/internal/logger"
)

// Client talks to the signature RPC service that computes the anti-crawl
// request headers from a request URI and the account's cookie string.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

type SignRequest struct {
	URI     string `json:"uri"`
	Cookies string `json:"cookies"`
}

// Signature carries the computed header values. The platform rejects any
// request where these are missing or stale.
type Signature struct {
	ZSE96 string `json:"x_zse_96"`
	ZST81 string `json:"x_zst_81"`
}

type signResponse struct {
	IsOK bool       `json:"isok"`
	Msg  string     `json:"msg"`
	Data *Signature `json:"data"`
}

// Error marks a failure to obtain a signature. The request executor treats
// it as retryable since the signer is usually just briefly unreachable.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("sign server: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.New("SignClient"),
	}
}

// Sign requests signed headers for the given URI (path plus encoded query).
func (c *Client) Sign(ctx context.Context, uri, cookies string) (*Signature, error) {
	body, err := json.Marshal(SignRequest{URI: uri, Cookies: cookies})
	if err != nil {
		return nil, &Error{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/zhihu/sign", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Err: err}
	}
	if !out.IsOK || out.Data == nil {
		c.log.LogWarnf("sign rejected for uri %s: %s", uri, out.Msg)
		return nil, &Error{Err: fmt.Errorf("sign rejected: %s", out.Msg)}
	}
	return out.Data, nil
}
