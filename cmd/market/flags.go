package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Address            string        `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection string        `env:"DATABASE_URI"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"dontexposethis"`
	JWTTTL             time.Duration `env:"JWT_TTL" envDefault:"24h"`
	RatesURL           string        `env:"CURRENCY_RATES_URL" envDefault:"https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/usd.json"`
	RatesInterval      time.Duration `env:"CURRENCY_RATES_INTERVAL" envDefault:"1h"`
	CurrencyCodes      string        `env:"CURRENCY_CODES" envDefault:"USD,EUR,RUB"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("ENV JWT_SECRET must be set")
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string")
	jwtTTL := flag.Duration("t", cfg.JWTTTL, "TTL for JWT token(e.g. 24h; 30m )")
	ratesURL := flag.String("r", cfg.RatesURL, "Currency rates document URL")
	ratesInterval := flag.Duration("i", cfg.RatesInterval, "Currency rates refresh interval")
	currencyCodes := flag.String("c", cfg.CurrencyCodes, "Comma-separated currency codes to track")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.JWTTTL = *jwtTTL
	cfg.RatesURL = *ratesURL
	cfg.RatesInterval = *ratesInterval
	cfg.CurrencyCodes = *currencyCodes

	return cfg, nil
}

// Codes splits the tracked currency list into upper-case codes.
func (c *Config) Codes() []string {
	parts := strings.Split(c.CurrencyCodes, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, strings.ToUpper(p))
		}
	}
	return codes
}
