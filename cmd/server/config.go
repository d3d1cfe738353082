package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// config is the server configuration. Every flag falls back to an
// environment variable so the binary runs unchanged in a container.
type config struct {
	Port    int
	DBPath  string
	TaxRate decimal.Decimal
	Dev     bool
	Seed    string
	CartTTL time.Duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	port, err := strconv.Atoi(getEnv("CHECKOUT_PORT", "8080"))
	if err != nil {
		return config{}, fmt.Errorf("CHECKOUT_PORT: %w", err)
	}
	dev, err := strconv.ParseBool(getEnv("CHECKOUT_LOG_DEV", "false"))
	if err != nil {
		return config{}, fmt.Errorf("CHECKOUT_LOG_DEV: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("CHECKOUT_CART_TTL", "30m"))
	if err != nil {
		return config{}, fmt.Errorf("CHECKOUT_CART_TTL: %w", err)
	}

	var cfg config
	var rate string
	fs.IntVar(&cfg.Port, "port", port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", getEnv("CHECKOUT_DB", "checkout.db"), "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&rate, "tax-rate", getEnv("CHECKOUT_TAX_RATE", "0.08"), "Sales tax rate as a decimal fraction")
	fs.BoolVar(&cfg.Dev, "dev", dev, "Human-readable development logging")
	fs.StringVar(&cfg.Seed, "seed", getEnv("CHECKOUT_SEED", ""), "Scenario to load at startup (empty to skip)")
	fs.DurationVar(&cfg.CartTTL, "cart-ttl", ttl, "Idle time before an open cart is dropped (0 disables)")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.TaxRate, err = decimal.NewFromString(rate)
	if err != nil {
		return config{}, fmt.Errorf("tax rate %q: %w", rate, err)
	}
	return cfg, nil
}
