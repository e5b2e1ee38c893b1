// Package config reads runtime configuration from the environment.
package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultTolerance is used when RECONCILIATION_TOLERANCE is unset or invalid.
var defaultTolerance = decimal.NewFromFloat(0.01)

// Tolerance returns the default reconciliation tolerance.
//
// Set via env:
// - RECONCILIATION_TOLERANCE=0.01
func Tolerance() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("RECONCILIATION_TOLERANCE"))
	if raw == "" {
		return defaultTolerance
	}

	tolerance, err := decimal.NewFromString(raw)
	if err != nil || tolerance.IsNegative() {
		return defaultTolerance
	}

	return tolerance
}

// JWTSecret returns the secret used to verify bearer tokens.
//
// Set via env:
// - JWT_SECRET
func JWTSecret() string {
	return strings.TrimSpace(os.Getenv("JWT_SECRET"))
}

// ReconciliationSchedule returns the cron schedule for the reconciliation
// sweep. An empty schedule disables the sweep.
//
// Set via env:
// - RECONCILIATION_CRON="0 6 1 * *"
func ReconciliationSchedule() string {
	return strings.TrimSpace(os.Getenv("RECONCILIATION_CRON"))
}
