// Package reconciliation compares aggregated report totals against the
// detailed transaction ledger each church keeps for itself.
//
// The comparison is read-only. Reports are the macro level: one row of
// derived totals per church and month. Church transactions are the micro
// level: the individual entries behind those totals. A finding classifies
// how well the two levels agree for one church and period.
package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/config"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/ipupy-tesoreria/backend/internal/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status classifies a single comparison.
type Status string

const (
	// StatusMatch means both levels exist and agree within the tolerance.
	StatusMatch Status = "match"

	// StatusVariance means both levels exist but disagree beyond the tolerance.
	StatusVariance Status = "variance"

	// StatusReportOnly means a report was filed but the church recorded no
	// transactions for the period.
	StatusReportOnly Status = "report_only"

	// StatusLedgerOnly means transactions exist but no report was filed.
	StatusLedgerOnly Status = "ledger_only"
)

// Finding is the comparison result for one church and period. Deltas are
// report minus ledger, so a positive income delta means the report claims
// more income than the church's own book shows.
type Finding struct {
	ChurchID       uuid.UUID       `json:"churchId" example:"65392deb-5e92-4268-b114-297faad6cdce"`
	ChurchName     string          `json:"churchName" example:"IPU Asunción Central"`
	Year           int             `json:"year" example:"2026"`
	Month          int             `json:"month" example:"7"`
	ReportIncome   decimal.Decimal `json:"reportIncome" example:"1500000"`
	ReportExpenses decimal.Decimal `json:"reportExpenses" example:"250000"`
	LedgerIncome   decimal.Decimal `json:"ledgerIncome" example:"1500000"`
	LedgerExpenses decimal.Decimal `json:"ledgerExpenses" example:"250000"`
	IncomeDelta    decimal.Decimal `json:"incomeDelta" example:"0"`
	ExpensesDelta  decimal.Decimal `json:"expensesDelta" example:"0"`
	Status         Status          `json:"status" example:"match"`
}

// Compare builds the finding for one church and period.
//
// The second return value reports whether there is anything to reconcile. A
// church with neither a report nor transactions in the period yields no
// finding.
func Compare(db *gorm.DB, church models.Church, period types.Period, tolerance decimal.Decimal) (Finding, bool, error) {
	finding := Finding{
		ChurchID:   church.ID,
		ChurchName: church.Name,
		Year:       period.Year,
		Month:      int(period.Month),
	}

	var report models.Report
	hasReport := true
	err := db.Where(&models.Report{
		ChurchID: church.ID,
		Year:     period.Year,
		Month:    int(period.Month),
	}).First(&report).Error
	if err != nil {
		if !errors.Is(err, models.ErrResourceNotFound) {
			return Finding{}, false, err
		}
		hasReport = false
	}

	entries, income, expenses, err := ledgerTotals(db, church.ID, period)
	if err != nil {
		return Finding{}, false, err
	}

	if !hasReport && entries == 0 {
		return Finding{}, false, nil
	}

	if hasReport {
		finding.ReportIncome = report.TotalIncome
		finding.ReportExpenses = report.TotalExpenses
	}
	finding.LedgerIncome = income
	finding.LedgerExpenses = expenses
	finding.IncomeDelta = finding.ReportIncome.Sub(finding.LedgerIncome)
	finding.ExpensesDelta = finding.ReportExpenses.Sub(finding.LedgerExpenses)

	switch {
	case !hasReport:
		finding.Status = StatusLedgerOnly
	case entries == 0:
		finding.Status = StatusReportOnly
	case finding.IncomeDelta.Abs().LessThanOrEqual(tolerance) && finding.ExpensesDelta.Abs().LessThanOrEqual(tolerance):
		finding.Status = StatusMatch
	default:
		finding.Status = StatusVariance
	}

	return finding, true, nil
}

// ComparePeriod builds findings for every church that has a report or
// transactions in the period. Inactive churches are included since their
// history still has to add up.
func ComparePeriod(db *gorm.DB, period types.Period, tolerance decimal.Decimal) ([]Finding, error) {
	var churches []models.Church
	if err := db.Order("name ASC").Find(&churches).Error; err != nil {
		return nil, err
	}

	findings := make([]Finding, 0)
	for _, church := range churches {
		finding, ok, err := Compare(db, church, period, tolerance)
		if err != nil {
			return nil, err
		}
		if ok {
			findings = append(findings, finding)
		}
	}

	return findings, nil
}

// Sweep reconciles the month before the reference time and logs every
// finding that is not a match. It never mutates either side.
func Sweep(db *gorm.DB, reference time.Time, tolerance decimal.Decimal) ([]Finding, error) {
	period := types.PeriodOf(reference).Previous()

	findings, err := ComparePeriod(db, period, tolerance)
	if err != nil {
		return nil, err
	}

	matches := 0
	for _, finding := range findings {
		if finding.Status == StatusMatch {
			matches++
			continue
		}

		log.Warn().
			Str("church", finding.ChurchName).
			Str("period", period.String()).
			Str("status", string(finding.Status)).
			Str("incomeDelta", finding.IncomeDelta.String()).
			Str("expensesDelta", finding.ExpensesDelta.String()).
			Msg("reconciliation finding")
	}

	log.Info().
		Str("period", period.String()).
		Int("findings", len(findings)).
		Int("matches", matches).
		Msg("reconciliation sweep finished")

	return findings, nil
}

// RunSweepScheduler schedules the periodic reconciliation sweep. An empty
// schedule disables it. The returned cron is already started.
func RunSweepScheduler(db *gorm.DB, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := Sweep(db, time.Now(), config.Tolerance()); err != nil {
			log.Error().Err(err).Msg("reconciliation sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule reconciliation sweep: %w", err)
	}

	c.Start()
	return c, nil
}

// ledgerTotals sums the church's own book for the period.
func ledgerTotals(db *gorm.DB, churchID uuid.UUID, period types.Period) (int64, decimal.Decimal, decimal.Decimal, error) {
	var entries int64
	var income, expenses decimal.NullDecimal

	row := db.
		Table("church_transactions").
		Where("church_id = ?", churchID).
		Where("deleted_at IS NULL").
		Where("datetime(date) >= datetime(?)", period.Start()).
		Where("datetime(date) < datetime(?)", period.End()).
		Select("COUNT(*), SUM(income), SUM(expense)").
		Row()

	if err := row.Scan(&entries, &income, &expenses); err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}

	return entries, income.Decimal, expenses.Decimal, nil
}
