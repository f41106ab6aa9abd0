// Package export implements C8: the columnar partition writer. Schema
// and idempotent-replace semantics are grounded on
// original_source/src/exporters/gcs_exporter.py's
// gs://{bucket}/network_data/dt=YYYY-MM-DD/ layout, reimplemented onto
// github.com/parquet-go/parquet-go (struct-tag-driven, matching the
// teacher's tagged-struct marshaling idiom elsewhere in the codebase)
// instead of pyarrow, and cloud.google.com/go/storage instead of the
// google-cloud-storage Python client.
package export

import (
	"time"

	"mediation-reconciler/internal/reconcile"
)

// Row is the exported columnar schema, column-for-column per spec.md
// §4.8. Nullable columns are pointer fields so an absent value encodes
// as parquet NULL rather than 0.
type Row struct {
	Date               string     `parquet:"date"`
	Network            string     `parquet:"network"`
	Platform           string     `parquet:"platform"`
	AdType             string     `parquet:"ad_type"`
	Application        string     `parquet:"application"`
	MaxRevenue         float64    `parquet:"max_revenue"`
	MaxImpressions     int64      `parquet:"max_impressions"`
	MaxECPM            float64    `parquet:"max_ecpm"`
	NetworkRevenue     float64    `parquet:"network_revenue"`
	NetworkImpressions int64      `parquet:"network_impressions"`
	NetworkECPM        float64    `parquet:"network_ecpm"`
	RevDeltaPct        *float64   `parquet:"rev_delta_pct,optional"`
	ImpDeltaPct        *float64   `parquet:"imp_delta_pct,optional"`
	ECPMDeltaPct       *float64   `parquet:"ecpm_delta_pct,optional"`
	HourRange          *string    `parquet:"hour_range,optional"`
	FetchedAt          time.Time  `parquet:"fetched_at,timestamp"`
}

// FromComparisonRows converts the reconciler's output into the exported
// row shape. Ordering is preserved verbatim — reconcile.Engine already
// produced it in the required (date, network, platform, ad_type,
// application) order.
func FromComparisonRows(rows []reconcile.ComparisonRow) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{
			Date:               r.Date,
			Network:            r.Network.Info().IconTag,
			Platform:           r.Platform.String(),
			AdType:             r.AdType.String(),
			Application:        r.Application,
			MaxRevenue:         r.MaxRevenue,
			MaxImpressions:     r.MaxImpressions,
			MaxECPM:            r.MaxECPM,
			NetworkRevenue:     r.NetworkRevenue,
			NetworkImpressions: r.NetworkImpressions,
			NetworkECPM:        r.NetworkECPM,
			RevDeltaPct:        r.RevDeltaPct,
			ImpDeltaPct:        r.ImpDeltaPct,
			ECPMDeltaPct:       r.ECPMDeltaPct,
			HourRange:          r.HourRange,
			FetchedAt:          r.FetchedAt,
		}
	}
	return out
}
