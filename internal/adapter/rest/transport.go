package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"restoadmin/internal/domain"
	"restoadmin/internal/metrics"

	"golang.org/x/oauth2"
)

// Refresher exchanges the stored refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

type replayKey struct{}

// Transport is an http.RoundTripper that authenticates requests with the
// stored access token. On a 401 it refreshes the token once and replays the
// request; a replayed request is never retried again.
type Transport struct {
	Base      http.RoundTripper
	Tokens    domain.CredentialStore
	Refresher Refresher
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	replayed, _ := ctx.Value(replayKey{}).(bool)

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	refreshed := false
	tok, err := NewTokenSource(ctx, t.Tokens).Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != "" && !tok.Valid() && !replayed && t.Refresher != nil {
		log.Printf("rest: access token expired, refreshing before %s %s", req.Method, req.URL.Path)
		refreshed = true
		if t.Refresher.Refresh(ctx) {
			if tok, err = NewTokenSource(ctx, t.Tokens).Token(); err != nil {
				return nil, err
			}
		}
	}

	resp, err := t.base().RoundTrip(authorize(ctx, req, body, tok))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if replayed || refreshed || t.Refresher == nil {
		return resp, nil
	}
	if !t.Refresher.Refresh(ctx) {
		return resp, nil
	}
	drain(resp)

	tok, err = NewTokenSource(ctx, t.Tokens).Token()
	if err != nil {
		return nil, err
	}
	metrics.RequestReplays.Inc()
	log.Printf("rest: replaying %s %s with refreshed token", req.Method, req.URL.Path)
	rctx := context.WithValue(ctx, replayKey{}, true)
	return t.base().RoundTrip(authorize(rctx, req, body, tok))
}

// authorize clones req onto ctx with a fresh copy of body and the bearer token.
func authorize(ctx context.Context, req *http.Request, body []byte, tok *oauth2.Token) *http.Request {
	r := req.Clone(ctx)
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
	}
	r.Header.Del("Authorization")
	if tok.AccessToken != "" {
		tok.SetAuthHeader(r)
	}
	return r
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close() //nolint:errcheck
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return b, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
