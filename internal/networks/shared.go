// Package networks holds the ~13 per-network fetchers (C5). Every adapter
// implements fetcher.Fetcher, funnels transport through httpclient.Client,
// caches credentials through tokencache.Cache where applicable, and
// normalizes identifiers exclusively through package schema — no adapter
// invents a platform/ad-type/network string of its own (spec.md §9).
//
// The plain-HTTP-GET-then-decode-JSON shape most adapters share is
// grounded on the teacher's internal/market/cryptocompare.go and
// internal/market/defillama.go: a context-scoped request, a narrow
// response struct, and the fetch function returning a typed slice rather
// than a generic map wherever the response shape is documented and
// stable.
package networks

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

// dayRange expands a [start,end] window into individual UTC calendar day
// strings, inclusive. Used by the networks whose API is single-day-only
// and must be iterated (spec.md §4.5).
func dayRange(window fetcher.DateRange) []string {
	var days []string
	for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

// classifyHTTPFailure maps a transport-level error from httpclient into
// the fetcher error taxonomy: a final 429 becomes a RateLimitError, a 401
// an AuthError, anything else a TransportError. Adapters wrap every
// failed httpclient call with this rather than classifying it themselves.
func classifyHTTPFailure(network string, err error) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusTooManyRequests:
			return &fetcher.RateLimitError{Network: network, Cause: err}
		case http.StatusUnauthorized:
			return &fetcher.AuthError{Network: network, Cause: err}
		}
	}
	return &fetcher.TransportError{Network: network, Cause: err}
}

// shapeError wraps a JSON-decode/mapping failure as a ResponseShapeError.
func shapeError(network string, err error) error {
	return &fetcher.ResponseShapeError{Network: network, Cause: err}
}

// authError wraps a credential/token failure.
func authError(network string, err error) error {
	return &fetcher.AuthError{Network: network, Cause: err}
}

// adTypeFromSlotCode is the per-network numeric-slot-code lookup spec.md
// §4.5 requires for networks that report ad type as an integer rather
// than a label. It holds no codes itself: the caller passes its own
// table, since the codes are provider-specific.
func adTypeFromSlotCode(code int, table map[int]schema.AdType) (schema.AdType, bool) {
	t, ok := table[code]
	return t, ok
}

func fmtDate(t time.Time) string { return t.Format("2006-01-02") }

var errNoRows = fmt.Errorf("no rows in response")

// rawRow is one decoded JSON object from a network's report response,
// before field-by-field coercion into canonical types.
type rawRow map[string]any

func stringField(r rawRow, key string) string {
	s, _ := r[key].(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
