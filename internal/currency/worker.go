package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/antonminaichev/gomarket/internal/logger"
	"github.com/antonminaichev/gomarket/internal/types/currency"
)

// RateClient fetches, for the canonical currency, the rate of every
// requested code.
type RateClient interface {
	GetRates(ctx context.Context, codes []string) (map[string]decimal.Decimal, error)
}

// HTTPRateClient reads a currency-api style JSON document of the form
// {"usd": {"eur": 0.92, "rub": 88.1, ...}}.
type HTTPRateClient struct {
	Client  *http.Client
	RateURL string
}

func (c *HTTPRateClient) GetRates(ctx context.Context, codes []string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// The document carries extra top-level fields (like the quote
	// date), so only the canonical table is decoded strictly.
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	raw, ok := doc[strings.ToLower(currency.DefaultCode)]
	if !ok {
		return nil, fmt.Errorf("no rate table for %s", currency.DefaultCode)
	}
	var table map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("decode rate table: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(codes))
	for _, code := range codes {
		rate, ok := table[strings.ToLower(code)]
		if !ok {
			logger.Log.Warn("rate missing in response", zap.String("code", code))
			continue
		}
		result[strings.ToUpper(code)] = rate
	}
	return result, nil
}

// Seed makes sure every tracked code has a row, then applies one
// initial rate fetch. Rates persisted by a previous run survive a
// failed fetch untouched.
func Seed(ctx context.Context, client RateClient, svc *Service, codes []string) error {
	if err := svc.Track(ctx, codes); err != nil {
		return fmt.Errorf("track currencies: %w", err)
	}
	rates, err := client.GetRates(ctx, codes)
	if err != nil {
		return fmt.Errorf("initial rate fetch: %w", err)
	}
	return svc.UpdateRates(ctx, rates)
}

// UpdateLoop periodically refreshes the stored rates until the context
// is cancelled. Prices already stored in the canonical currency are
// unaffected; only entry-path conversions see new rates.
func UpdateLoop(ctx context.Context, client RateClient, svc *Service, codes []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("currency update loop stopped")
			return
		case <-ticker.C:
			rates, err := client.GetRates(ctx, codes)
			if err != nil {
				logger.Log.Warn("rate fetch failed", zap.Error(err))
				continue
			}
			if err := svc.UpdateRates(ctx, rates); err != nil {
				logger.Log.Warn("rate update failed", zap.Error(err))
				continue
			}
			logger.Log.Debug("currency rates updated", zap.Int("count", len(rates)))
		}
	}
}
