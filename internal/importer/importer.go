// Package importer creates resources from normalized rows, one batch at a
// time. Rows come out of the spreadsheets the treasury used before, already
// parsed into records.
//
// A batch is all or nothing: every row is validated first and a single
// invalid row aborts the whole batch before anything is written. Rows that
// already exist are skipped, not errors, so re-running an import is safe.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/ipupy-tesoreria/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Result is the outcome of one import batch. Row numbers in messages refer
// to the position in the request, starting at 1.
type Result struct {
	Imported int      `json:"imported" example:"10"`
	Skipped  int      `json:"skipped" example:"2"`
	Errors   []string `json:"errors"`
	Details  []string `json:"details"`
}

// Ok reports whether the batch passed validation.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func newResult() Result {
	return Result{Errors: []string{}, Details: []string{}}
}

func (r *Result) rowError(row int, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %s", row+1, err))
}

func (r *Result) imported(row int, format string, args ...any) {
	r.Imported++
	r.Details = append(r.Details, fmt.Sprintf("row %d: ", row+1)+fmt.Sprintf(format, args...))
}

func (r *Result) skipped(row int, format string, args ...any) {
	r.Skipped++
	r.Details = append(r.Details, fmt.Sprintf("row %d: ", row+1)+fmt.Sprintf(format, args...))
}

// ChurchRow is one church to register.
type ChurchRow struct {
	Name   string `json:"name" example:"IPU Luque"`
	City   string `json:"city" example:"Luque"`
	Pastor string `json:"pastor" example:"Juan Benítez"`
	Phone  string `json:"phone" example:"+595 21 555 123"`
}

// ReportRow is one historical monthly report. The church is referenced by
// name since that is all the spreadsheets know. The carry forward only
// counts for the first report of a church, later periods take it from the
// previous closing balance.
type ReportRow struct {
	Church       string          `json:"church" example:"IPU Luque"`
	Year         int             `json:"year" example:"2024"`
	Month        int             `json:"month" example:"7"`
	CarryForward decimal.Decimal `json:"carryForward"`
	models.ReportAmounts
}

// TransactionRow is one row of a church's cash book.
type TransactionRow struct {
	Church  string          `json:"church" example:"IPU Luque"`
	Date    time.Time       `json:"date" example:"2024-07-14T00:00:00Z"`
	Concept string          `json:"concept" example:"Ofrenda culto dominical"`
	Income  decimal.Decimal `json:"income" example:"250000"`
	Expense decimal.Decimal `json:"expense" example:"0"`
}

// Churches imports a batch of churches. Existing names are skipped.
func Churches(db *gorm.DB, rows []ChurchRow) (Result, error) {
	result := newResult()

	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			result.rowError(i, models.ErrChurchNameEmpty)
		}
	}
	if !result.Ok() {
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			name := strings.TrimSpace(row.Name)

			_, err := findChurch(tx, name)
			if err == nil {
				result.skipped(i, "church %q already exists", name)
				continue
			}
			if !errors.Is(err, models.ErrResourceNotFound) {
				return err
			}

			church := models.Church{
				Name:   name,
				City:   strings.TrimSpace(row.City),
				Pastor: strings.TrimSpace(row.Pastor),
				Phone:  strings.TrimSpace(row.Phone),
				Active: true,
			}
			if err := tx.Create(&church).Error; err != nil {
				return err
			}

			result.imported(i, "imported church %q", name)
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// Reports imports a batch of historical reports in row order, so that the
// carry forward of each period can be resolved from the one before it.
// Imported reports start at the beginning of the lifecycle.
func Reports(db *gorm.DB, rows []ReportRow) (Result, error) {
	result := newResult()

	churches := make([]models.Church, len(rows))
	for i, row := range rows {
		church, err := resolveChurch(db, row.Church)
		if err != nil {
			result.rowError(i, err)
			continue
		}
		churches[i] = church

		period := types.NewPeriod(row.Year, time.Month(row.Month))
		if row.Year <= 0 || !period.Valid() {
			result.rowError(i, models.ErrPeriodInvalid)
		}

		if err := row.ReportAmounts.Validate(); err != nil {
			result.rowError(i, err)
		}
	}
	if !result.Ok() {
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			period := types.NewPeriod(row.Year, time.Month(row.Month))

			var existing models.Report
			err := tx.Where(&models.Report{
				ChurchID: churches[i].ID,
				Year:     row.Year,
				Month:    row.Month,
			}).First(&existing).Error
			if err == nil {
				result.skipped(i, "report %s for %q already exists", period, row.Church)
				continue
			}
			if !errors.Is(err, models.ErrResourceNotFound) {
				return err
			}

			report := models.Report{
				ChurchID:      churches[i].ID,
				Year:          row.Year,
				Month:         row.Month,
				CarryForward:  row.CarryForward,
				ReportAmounts: row.ReportAmounts,
			}
			if err := tx.Create(&report).Error; err != nil {
				return err
			}

			result.imported(i, "imported report %s for %q", period, row.Church)
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// Transactions imports a batch of cash book rows. Rows already imported are
// recognized by their hash and skipped.
func Transactions(db *gorm.DB, rows []TransactionRow) (Result, error) {
	result := newResult()

	churches := make([]models.Church, len(rows))
	for i, row := range rows {
		church, err := resolveChurch(db, row.Church)
		if err != nil {
			result.rowError(i, err)
			continue
		}
		churches[i] = church

		transaction := models.ChurchTransaction{
			Concept: row.Concept,
			Income:  row.Income,
			Expense: row.Expense,
		}
		if err := transaction.Validate(); err != nil {
			result.rowError(i, err)
		}
	}
	if !result.Ok() {
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			transaction := models.ChurchTransaction{
				ChurchID: churches[i].ID,
				Date:     row.Date.In(time.UTC),
				Concept:  strings.TrimSpace(row.Concept),
				Income:   row.Income,
				Expense:  row.Expense,
			}
			transaction.ImportHash = transaction.Hash()

			var existing models.ChurchTransaction
			err := tx.Where(&models.ChurchTransaction{ImportHash: transaction.ImportHash}).First(&existing).Error
			if err == nil {
				result.skipped(i, "transaction %q of %s already exists", transaction.Concept, row.Date.Format("2006-01-02"))
				continue
			}
			if !errors.Is(err, models.ErrResourceNotFound) {
				return err
			}

			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}

			result.imported(i, "imported transaction %q of %s", transaction.Concept, row.Date.Format("2006-01-02"))
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

func findChurch(db *gorm.DB, name string) (models.Church, error) {
	var church models.Church
	err := db.Where("name = ?", name).First(&church).Error
	return church, err
}

// resolveChurch looks up a row's church by name for validation. The create
// hooks check again inside the batch transaction.
func resolveChurch(db *gorm.DB, name string) (models.Church, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Church{}, models.ErrChurchNameEmpty
	}

	church, err := findChurch(db, name)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			return models.Church{}, fmt.Errorf("church %q does not exist", name)
		}

		return models.Church{}, err
	}

	if !church.Active {
		return models.Church{}, fmt.Errorf("%w: %q", models.ErrChurchInactive, name)
	}

	return church, nil
}
