// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fetch retrieves the firmware bundle and the device-keyed
// auxiliary library over HTTP. Both fetches are fail-fast by default;
// retries are an explicit config opt-in.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/logging"
)

const (
	contentTypeZip    = "application/zip"
	contentTypeBinary = "application/octet-stream"
)

// Client performs the artifact downloads.
type Client struct {
	cfg    *config.Config
	logger *logging.Logger
	httpc  *http.Client

	// now is swappable for tests of the cache-buster parameter.
	now func() time.Time
}

// NewClient creates a Client. A zero http_timeout means no timeout:
// firmware downloads on slow uplinks must not be cut off mid-stream.
func NewClient(cfg *config.Config, logger *logging.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.WithComponent("fetch"),
		httpc:  &http.Client{Timeout: cfg.HTTPTimeoutDuration()},
		now:    time.Now,
	}
}

// FirmwareArchive downloads the firmware bundle to destPath, streaming
// the body so large images never sit in memory. The URL carries a Unix
// timestamp cache-buster; the response must be 2xx with Content-Type
// application/zip.
func (c *Client) FirmwareArchive(ctx context.Context, destPath string) error {
	u, err := url.Parse(c.cfg.FirmwareURL)
	if err != nil {
		return errors.Wrap(err, errors.KindFetch, "invalid firmware URL")
	}
	q := u.Query()
	q.Set("n", strconv.FormatInt(c.now().Unix(), 10))
	u.RawQuery = q.Encode()

	c.logger.Info("Downloading firmware archive", "url", u.Redacted())

	return c.withRetry(ctx, "firmware archive", func() error {
		resp, err := c.get(ctx, u.String(), nil)
		if err != nil {
			return errors.Wrap(err, errors.KindFetch, "firmware download failed")
		}
		defer resp.Body.Close()

		if err := checkResponse(resp, contentTypeZip); err != nil {
			return err
		}

		out, err := os.Create(destPath)
		if err != nil {
			return errors.Wrapf(err, errors.KindFetch, "cannot create archive file %s", destPath)
		}

		n, err := io.Copy(out, resp.Body)
		if err != nil {
			out.Close()
			os.Remove(destPath)
			return errors.Wrap(err, errors.KindFetch, "firmware download interrupted")
		}
		if err := out.Close(); err != nil {
			return errors.Wrap(err, errors.KindFetch, "failed to flush archive file")
		}

		c.logger.Info("Firmware archive downloaded", "bytes", n)
		return nil
	})
}

// AuxiliaryBinary downloads the device-keyed library. The response must
// be 2xx with Content-Type application/octet-stream; the payload is
// small and returned in full.
func (c *Client) AuxiliaryBinary(ctx context.Context, deviceKey string) ([]byte, error) {
	u, err := url.Parse(c.cfg.AuxiliaryURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindFetch, "invalid auxiliary URL")
	}
	q := u.Query()
	q.Set("uid", deviceKey)
	u.RawQuery = q.Encode()

	c.logger.Info("Downloading auxiliary library")

	var payload []byte
	err = c.withRetry(ctx, "auxiliary library", func() error {
		resp, err := c.get(ctx, u.String(), map[string]string{"token": c.cfg.AuxiliaryToken})
		if err != nil {
			return errors.Wrap(err, errors.KindFetch, "auxiliary download failed")
		}
		defer resp.Body.Close()

		if err := checkResponse(resp, contentTypeBinary); err != nil {
			return err
		}

		payload, err = io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, errors.KindFetch, "auxiliary download interrupted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Auxiliary library downloaded", "bytes", len(payload))
	return payload, nil
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpc.Do(req)
}

// checkResponse enforces the status and exact content-type contract.
func checkResponse(resp *http.Response, wantType string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf(errors.KindFetch, "unexpected HTTP status %d from %s", resp.StatusCode, resp.Request.URL.Host)
	}
	if ct := resp.Header.Get("Content-Type"); ct != wantType {
		return errors.New(errors.KindFetch, fmt.Sprintf("invalid content type: %q (want %q)", ct, wantType))
	}
	return nil
}

// withRetry runs fn up to fetch_retries+1 times. With the default of
// zero retries this is a single fail-fast attempt.
func (c *Client) withRetry(ctx context.Context, what string, fn func() error) error {
	backoff := c.cfg.RetryBackoffDuration()

	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= c.cfg.FetchRetries {
			return err
		}

		c.logger.WithError(err).Warn("Fetch attempt failed, retrying",
			"what", what,
			"attempt", attempt+1,
			"backoff", backoff.String())

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.KindFetch, "fetch cancelled")
		case <-time.After(backoff):
		}
	}
}
