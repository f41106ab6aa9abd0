package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

func TestDeliverySendsPayloadToWebhook(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDelivery(httpclient.New(), srv.URL)
	payload := New(DefaultConfig()).Format(nil, map[schema.Network]error{}, fetcher.DateRange{}, time.Now())

	if err := d.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", gotContentType)
	}
	if len(gotBody) == 0 {
		t.Errorf("expected a non-empty JSON body")
	}
}

func TestDeliverySkipsWhenNoWebhookConfigured(t *testing.T) {
	d := NewDelivery(httpclient.New(), "")
	payload := New(DefaultConfig()).Format(nil, map[schema.Network]error{}, fetcher.DateRange{}, time.Now())
	if err := d.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send with no webhook configured should no-op, got: %v", err)
	}
}
