// BidMachine adapter: HTTP Basic auth, no session/token step at all —
// the simplest auth mode in the pack, included as the baseline every
// other adapter's extra complexity (OAuth2, HMAC, session tokens) is
// measured against.
package networks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

type BidMachineConfig struct {
	Username string
	Password string
	BaseURL  string
}

type BidMachineFetcher struct {
	cfg    BidMachineConfig
	client *httpclient.Client
}

func NewBidMachine(cfg BidMachineConfig, client *httpclient.Client) *BidMachineFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.bidmachine.io/reporting/v1/stats"
	}
	return &BidMachineFetcher{cfg: cfg, client: client}
}

func (f *BidMachineFetcher) Name() schema.Network { return schema.NetworkBidMachine }

func (f *BidMachineFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	creds := base64.StdEncoding.EncodeToString([]byte(f.cfg.Username + ":" + f.cfg.Password))

	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"date_from": {fmtDate(window.Start)},
			"date_to":   {fmtDate(window.End)},
			"group_by":  {"date,os,format"},
		},
		Headers: map[string][]string{"Authorization": {"Basic " + creds}},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("bidmachine", err)
	}

	var decoded struct {
		Data []rawRow `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("bidmachine", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkBidMachine, window)
	for _, r := range decoded.Data {
		platform := schema.NormalizePlatform(stringField(r, "os"))
		adType, ok := schema.NormalizeAdType(stringField(r, "format"))
		if !ok {
			continue
		}
		date := stringField(r, "date")
		revenue, _ := schema.CoerceNumber(r["revenue"])
		impressions, _ := schema.CoerceNumber(r["impressions"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
