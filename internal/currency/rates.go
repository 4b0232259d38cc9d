// Package currency fetches exchange-rate tables and converts amounts
// between currencies.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/log"
)

// RateTable maps a currency code to how many units of it one unit of Base buys.
// Rates[Base] is always 1.
type RateTable struct {
	Base     string
	Rates    map[string]float64
	Fallback bool // true when the static table replaced a failed fetch
}

// Rate returns the rate for code and whether it is present.
func (t RateTable) Rate(code string) (float64, bool) {
	r, ok := t.Rates[code]
	return r, ok
}

func (t RateTable) clone() RateTable {
	rates := make(map[string]float64, len(t.Rates))
	for k, v := range t.Rates {
		rates[k] = v
	}
	return RateTable{Base: t.Base, Rates: rates, Fallback: t.Fallback}
}

// Provider returns the rate table for a base currency. It never fails:
// errors are absorbed into a fallback table.
type Provider interface {
	FetchRates(ctx context.Context, base string) RateTable
}

// FallbackTable is served whenever the rate service cannot be used.
func FallbackTable(base string) RateTable {
	rates := map[string]float64{
		"USD": 0.03,
		"EUR": 0.029,
	}
	rates[base] = 1.0
	return RateTable{Base: base, Rates: rates, Fallback: true}
}

const (
	DefaultEndpoint  = "https://api.frankfurter.app/latest"
	DefaultBaseParam = "base"
	DefaultTimeout   = 5 * time.Second

	maxResponseBytes = 1 << 20
)

// HTTPProvider queries a JSON rate service shaped like {"rates": {"USD": 0.03}}.
type HTTPProvider struct {
	client    *http.Client
	endpoint  string
	baseParam string
	logger    *log.Logger
}

type HTTPConfig struct {
	Endpoint  string
	BaseParam string
	Timeout   time.Duration
	Client    *http.Client // optional, Timeout is ignored when set
	Logger    *log.Logger
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.BaseParam == "" {
		cfg.BaseParam = DefaultBaseParam
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &HTTPProvider{
		client:    client,
		endpoint:  cfg.Endpoint,
		baseParam: cfg.BaseParam,
		logger:    logger.WithComponent(log.ComponentRates),
	}
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// FetchRates issues a single GET for base. Any failure is logged and the
// fallback table is returned instead.
func (p *HTTPProvider) FetchRates(ctx context.Context, base string) RateTable {
	table, err := p.fetch(ctx, base)
	if err != nil {
		p.logger.WarnContext(ctx, "Exchange rate fetch failed, using fallback rates",
			log.FieldBaseCurrency, base,
			log.FieldError, err.Error())
		return FallbackTable(base)
	}
	p.logger.DebugContext(ctx, "Exchange rates fetched",
		log.FieldBaseCurrency, base,
		"currencies", len(table.Rates))
	return table
}

func (p *HTTPProvider) fetch(ctx context.Context, base string) (RateTable, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return RateTable{}, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set(p.baseParam, base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RateTable{}, fmt.Errorf("get rates: unexpected status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return RateTable{}, fmt.Errorf("decode rates: %w", err)
	}
	if body.Rates == nil {
		return RateTable{}, fmt.Errorf("decode rates: missing rates object")
	}

	rates := make(map[string]float64, len(body.Rates)+1)
	for code, rate := range body.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	rates[base] = 1.0
	return RateTable{Base: base, Rates: rates}, nil
}
