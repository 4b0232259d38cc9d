package currency

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHTTPProvider_FetchRates(t *testing.T) {
	var gotBase string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBase = r.URL.Query().Get("base")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"amount":1.0,"base":"TRY","rates":{"USD":0.03,"EUR":0.029,"GBP":0.024}}`)
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL})
	table := p.FetchRates(context.Background(), "TRY")

	if gotBase != "TRY" {
		t.Fatalf("expected base query param TRY, got %q", gotBase)
	}
	if table.Fallback {
		t.Fatalf("expected live table, got fallback")
	}
	if r, ok := table.Rate("TRY"); !ok || r != 1.0 {
		t.Fatalf("expected TRY=1.0 injected, got %v ok=%v", r, ok)
	}
	if r, _ := table.Rate("GBP"); r != 0.024 {
		t.Fatalf("expected GBP=0.024, got %v", r)
	}
}

func TestHTTPProvider_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"rates":`)
			},
		},
		{
			name: "missing rates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"message":"not found"}`)
			},
		},
		{
			name: "slow response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Timeout: 100 * time.Millisecond})
			table := p.FetchRates(context.Background(), "TRY")

			if !table.Fallback {
				t.Fatalf("expected fallback table")
			}
			want := map[string]float64{"TRY": 1.0, "USD": 0.03, "EUR": 0.029}
			for code, rate := range want {
				if got, _ := table.Rate(code); got != rate {
					t.Errorf("rate %s = %v, want %v", code, got, rate)
				}
			}
		})
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	table := NewHTTPProvider(HTTPConfig{Endpoint: endpoint}).FetchRates(context.Background(), "EUR")
	if !table.Fallback {
		t.Fatalf("expected fallback for unreachable service")
	}
}

func TestFallbackTable_BaseIsAlwaysOne(t *testing.T) {
	table := FallbackTable("USD")
	if r, _ := table.Rate("USD"); r != 1.0 {
		t.Fatalf("expected USD=1.0 when USD is the base, got %v", r)
	}
}

func TestConvert(t *testing.T) {
	table := RateTable{Base: "TRY", Rates: map[string]float64{"TRY": 1.0, "USD": 0.03, "XXX": 0}}

	tests := []struct {
		name   string
		amount string
		source string
		want   string
	}{
		{"usd to try", "100", "USD", "3333.33"},
		{"base currency", "42.5", "TRY", "42.5"},
		{"unknown currency passes through", "10.123", "JPY", "10.123"},
		{"zero rate passes through", "15", "XXX", "15"},
		{"rounds half away from zero", "0.015", "TRY", "0.02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(decimal.RequireFromString(tt.amount), tt.source, table)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("Convert(%s, %s) = %s, want %s", tt.amount, tt.source, got, tt.want)
			}
		})
	}
}

type countingProvider struct {
	calls    int32
	fallback bool
}

func (c *countingProvider) FetchRates(ctx context.Context, base string) RateTable {
	atomic.AddInt32(&c.calls, 1)
	if c.fallback {
		return FallbackTable(base)
	}
	return RateTable{Base: base, Rates: map[string]float64{base: 1, "USD": 0.5}}
}

func TestCachedProvider(t *testing.T) {
	t.Run("caches live tables", func(t *testing.T) {
		next := &countingProvider{}
		p := NewCachedProvider(next, time.Minute)

		first := p.FetchRates(context.Background(), "TRY")
		first.Rates["USD"] = 99 // mutation must not leak into the cache
		second := p.FetchRates(context.Background(), "TRY")

		if atomic.LoadInt32(&next.calls) != 1 {
			t.Fatalf("expected 1 upstream call, got %d", next.calls)
		}
		if r, _ := second.Rate("USD"); r != 0.5 {
			t.Fatalf("cached table was mutated: USD=%v", r)
		}
	})

	t.Run("never caches fallback", func(t *testing.T) {
		next := &countingProvider{fallback: true}
		p := NewCachedProvider(next, time.Minute)

		p.FetchRates(context.Background(), "TRY")
		p.FetchRates(context.Background(), "TRY")

		if atomic.LoadInt32(&next.calls) != 2 {
			t.Fatalf("expected 2 upstream calls, got %d", next.calls)
		}
		if p.Cache().Size() != 0 {
			t.Fatalf("expected empty cache")
		}
	})
}
