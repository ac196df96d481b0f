// Package probe implements the HTTP Probe (spec §4.2): discovering the
// artifact's size and whether the origin honors byte-range requests, ahead
// of picking a transfer strategy.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cognusion/go-osmdl/internal/httpclient"
	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// Result is the Transfer Descriptor's probing half: total size (unknown
// when Size < 0) and whether the origin supports ranged GETs.
type Result struct {
	Size            int64 // -1 means unknown
	RangesSupported bool
}

// Do probes url using client, preferring a HEAD and falling back to a
// ranged GET of the first byte when HEAD is unavailable or uninformative.
// It never fails with RangeNotSupported; that determination is returned in
// Result.RangesSupported, not as an error.
func Do(ctx context.Context, client httpclient.Client, url string) (Result, error) {
	res, err := probeHead(ctx, client, url)
	if err != nil {
		return Result{}, err
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		if size, ok := contentLength(res.Header); ok {
			return Result{Size: size, RangesSupported: acceptsRanges(res.Header)}, nil
		}
	}

	// HEAD didn't tell us enough: probe with a minimal ranged GET instead.
	return probeRangedGet(ctx, client, url)
}

func probeHead(ctx context.Context, client httpclient.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, xerrors.IO(err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, xerrors.Network(true, err)
	}
	return res, nil
}

func probeRangedGet(ctx context.Context, client httpclient.Client, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, xerrors.IO(err)
	}
	req.Header.Set("Range", "bytes=0-0")

	res, err := client.Do(req)
	if err != nil {
		return Result{}, xerrors.Network(true, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusPartialContent:
		// 206 with Content-Range establishes both range support and total size.
		if total, ok := totalFromContentRange(res.Header.Get("Content-Range")); ok {
			return Result{Size: total, RangesSupported: true}, nil
		}
		return Result{Size: -1, RangesSupported: true}, nil

	case res.StatusCode == http.StatusOK:
		// Server served the full body: no range support. Size may still be known.
		if size, ok := contentLength(res.Header); ok {
			return Result{Size: size, RangesSupported: false}, nil
		}
		return Result{Size: -1, RangesSupported: false}, nil

	case res.StatusCode >= 500:
		return Result{}, xerrors.Network(true, fmt.Errorf("ranged GET returned %s", res.Status))

	default:
		return Result{}, xerrors.HTTPStatus(res.StatusCode)
	}
}

func contentLength(h http.Header) (int64, bool) {
	cl := h.Get("Content-Length")
	if cl == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func acceptsRanges(h http.Header) bool {
	return strings.EqualFold(h.Get("Accept-Ranges"), "bytes")
}

// totalFromContentRange parses "bytes A-B/TOTAL" and returns TOTAL.
func totalFromContentRange(v string) (int64, bool) {
	parts := strings.Split(v, "/")
	if len(parts) != 2 {
		return 0, false
	}
	total, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}
