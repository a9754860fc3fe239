// Package api provides HTTP client for the retro domain registry.
package api

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/retro-registry/nlretro/internal/config"
	"github.com/retro-registry/nlretro/internal/models"
)

// Client wraps http.Client for registry lookups.
type Client struct {
	cfg *config.Config
	hc  *http.Client
	log zerolog.Logger
}

// NewClient configures HTTP client with the config timeout and optional TLS verification skip.
// A zero timeout leaves the request unbounded.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		//nolint:gosec
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   time.Duration(cfg.GetTimeout()) * time.Second,
			Transport: tr,
		},
		log: log,
	}
}

// SearchURL returns the URL that Search requests for term.
func (c *Client) SearchURL(term models.SearchTerm) string {
	return c.cfg.SearchURL(string(term))
}

// Search issues one GET and classifies the outcome as *TransportError,
// *HTTPError, *DecodeError or a decoded result.
func (c *Client) Search(ctx context.Context, term models.SearchTerm) (*models.QueryResult, error) {
	url := c.SearchURL(term)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, newTransportError(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Registry responded")

	if resp.StatusCode != http.StatusOK {
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		if !httpErr.Forbidden() {
			errResp := models.ParseErrorResponse(body)
			httpErr.Message = errResp.ErrorString
			httpErr.HasMessage = errResp.HasErrorString
		}
		return nil, httpErr
	}

	out, err := models.ParseQueryResult(body)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	c.log.Debug().Int("records", out.Len()).Msg("Decoded query result")
	return out, nil
}
