package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// ReportState is the lifecycle state of a monthly report. The Spanish values
// are stored and exposed on the wire since they are shared with the clients.
type ReportState string

const (
	ReportStatePending    ReportState = "pendiente"
	ReportStateInReview   ReportState = "en_revision"
	ReportStateApproved   ReportState = "aprobado"
	ReportStateRejected   ReportState = "rechazado"
	ReportStateCorrection ReportState = "en_correccion"
	ReportStateProcessed  ReportState = "procesado"
)

var (
	ErrReportExists       = errors.New("a report already exists for this church and period")
	ErrReportState        = errors.New("the report state does not allow this action")
	ErrReportVersionStale = errors.New("the report was changed by someone else, reload it and try again")
	ErrReportProcessed    = errors.New("a processed report can not be changed")
	ErrPeriodInvalid      = errors.New("the period needs a year and a month between 1 and 12")
)

// nationalFundRate is the share of tithes and offerings every church forwards
// to the national fund.
var nationalFundRate = decimal.NewFromFloat(0.1)

// nationalFundName is the fund the calculated share is posted to.
const nationalFundName = "Fondo Nacional"

// ReportAmounts are the raw monetary inputs of a monthly report. Every
// derived value is computed from these.
type ReportAmounts struct {
	// Congregational income, subject to the national fund share
	Tithes              decimal.Decimal `json:"tithes" gorm:"type:DECIMAL(20,2)" example:"1000000"`
	Offerings           decimal.Decimal `json:"offerings" gorm:"type:DECIMAL(20,2)" example:"500000"`
	AnnexIncome         decimal.Decimal `json:"annexIncome" gorm:"type:DECIMAL(20,2)"`
	DepartmentOfferings decimal.Decimal `json:"departmentOfferings" gorm:"type:DECIMAL(20,2)"`
	OtherIncome         decimal.Decimal `json:"otherIncome" gorm:"type:DECIMAL(20,2)"`

	// Offerings forwarded in full to their designated national fund
	MissionsOffering  decimal.Decimal `json:"missionsOffering" gorm:"type:DECIMAL(20,2)"`
	LazosAmor         decimal.Decimal `json:"lazosAmor" gorm:"type:DECIMAL(20,2)"`
	MisionPosible     decimal.Decimal `json:"misionPosible" gorm:"type:DECIMAL(20,2)"`
	APYOffering       decimal.Decimal `json:"apyOffering" gorm:"type:DECIMAL(20,2)"`
	InstituteOffering decimal.Decimal `json:"instituteOffering" gorm:"type:DECIMAL(20,2)"`

	// Local expenses
	PastoralHonoraria decimal.Decimal `json:"pastoralHonoraria" gorm:"type:DECIMAL(20,2)"`
	Electricity       decimal.Decimal `json:"electricity" gorm:"type:DECIMAL(20,2)"`
	Water             decimal.Decimal `json:"water" gorm:"type:DECIMAL(20,2)"`
	GarbageCollection decimal.Decimal `json:"garbageCollection" gorm:"type:DECIMAL(20,2)"`
	OtherExpenses     decimal.Decimal `json:"otherExpenses" gorm:"type:DECIMAL(20,2)"`
}

// Validate rejects negative amounts. Amounts are magnitudes, the direction is
// given by the field they are reported in.
func (a ReportAmounts) Validate() error {
	for _, amount := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"tithes", a.Tithes},
		{"offerings", a.Offerings},
		{"annexIncome", a.AnnexIncome},
		{"departmentOfferings", a.DepartmentOfferings},
		{"otherIncome", a.OtherIncome},
		{"missionsOffering", a.MissionsOffering},
		{"lazosAmor", a.LazosAmor},
		{"misionPosible", a.MisionPosible},
		{"apyOffering", a.APYOffering},
		{"instituteOffering", a.InstituteOffering},
		{"pastoralHonoraria", a.PastoralHonoraria},
		{"electricity", a.Electricity},
		{"water", a.Water},
		{"garbageCollection", a.GarbageCollection},
		{"otherExpenses", a.OtherExpenses},
	} {
		if amount.value.IsNegative() {
			return fmt.Errorf("%w: %s", ErrAmountNegative, amount.name)
		}
	}

	return nil
}

// ReportTotals are the values derived from the raw amounts. They are
// recomputed on every save so they can never drift from the inputs.
type ReportTotals struct {
	TotalIncome       decimal.Decimal `json:"totalIncome" gorm:"type:DECIMAL(20,2)" example:"1500000"`
	NationalFund      decimal.Decimal `json:"nationalFund" gorm:"type:DECIMAL(20,2)" example:"150000"`
	TotalNationalFund decimal.Decimal `json:"totalNationalFund" gorm:"type:DECIMAL(20,2)"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses" gorm:"type:DECIMAL(20,2)"`
	LocalEntry        decimal.Decimal `json:"localEntry" gorm:"type:DECIMAL(20,2)"`
	PeriodTotal       decimal.Decimal `json:"periodTotal" gorm:"type:DECIMAL(20,2)"`
	ClosingBalance    decimal.Decimal `json:"closingBalance" gorm:"type:DECIMAL(20,2)"`
}

// Totals derives all computed report values from the raw amounts.
//
// The national fund share is ten percent of tithes and offerings, rounded to
// two decimal places with ties away from zero. Everything else is sums and
// differences of the inputs.
func (a ReportAmounts) Totals(carryForward decimal.Decimal) ReportTotals {
	totalIncome := a.Tithes.Add(a.Offerings).Add(a.AnnexIncome).Add(a.DepartmentOfferings).Add(a.OtherIncome)
	nationalFund := a.Tithes.Add(a.Offerings).Mul(nationalFundRate).Round(2)
	totalNationalFund := nationalFund.Add(a.MissionsOffering).Add(a.LazosAmor).Add(a.MisionPosible).Add(a.APYOffering).Add(a.InstituteOffering)
	totalExpenses := a.PastoralHonoraria.Add(a.Electricity).Add(a.Water).Add(a.GarbageCollection).Add(a.OtherExpenses)
	localEntry := totalIncome.Sub(nationalFund)
	periodTotal := carryForward.Add(localEntry)

	return ReportTotals{
		TotalIncome:       totalIncome,
		NationalFund:      nationalFund,
		TotalNationalFund: totalNationalFund,
		TotalExpenses:     totalExpenses,
		LocalEntry:        localEntry,
		PeriodTotal:       periodTotal,
		ClosingBalance:    periodTotal.Sub(totalExpenses),
	}
}

// Report is the monthly financial report of a church.
type Report struct {
	DefaultModel
	Church   Church      `json:"-"`
	ChurchID uuid.UUID   `json:"churchId" gorm:"uniqueIndex:report_church_period"`
	Year     int         `json:"year" gorm:"uniqueIndex:report_church_period"`
	Month    int         `json:"month" gorm:"uniqueIndex:report_church_period"`
	State    ReportState `json:"state"`
	Version  int         `json:"version"` // Bumped on every write, write requests must send the version they read
	ReportAmounts
	CarryForward decimal.Decimal `json:"carryForward" gorm:"type:DECIMAL(20,2)"` // Opening balance, taken from the previous report when one exists
	ReportTotals
	DepositReceipt string          `json:"depositReceipt"` // Bank receipt number of the national fund deposit
	DepositDate    *time.Time      `json:"depositDate"`
	DepositAmount  decimal.Decimal `json:"depositAmount" gorm:"type:DECIMAL(20,2)"`
	ProcessedAt    *time.Time      `json:"processedAt"`
}

// Period returns the reporting period of the report.
func (r Report) Period() types.Period {
	return types.NewPeriod(r.Year, time.Month(r.Month))
}

// reportEditableStates are the states in which the report amounts may still
// be changed. Who may change them in which state is decided by the caller.
var reportEditableStates = []ReportState{ReportStatePending, ReportStateCorrection, ReportStateInReview}

// Editable reports whether the report still accepts changes to its amounts.
func (r Report) Editable() bool {
	return slices.Contains(reportEditableStates, r.State)
}

// BeforeSave validates the report and recomputes all derived values.
func (r *Report) BeforeSave(_ *gorm.DB) error {
	r.DepositReceipt = strings.TrimSpace(r.DepositReceipt)

	if r.Year <= 0 || !r.Period().Valid() {
		return ErrPeriodInvalid
	}

	if r.State == "" {
		r.State = ReportStatePending
	}

	if err := r.ReportAmounts.Validate(); err != nil {
		return err
	}

	if r.DepositAmount.IsNegative() {
		return fmt.Errorf("%w: depositAmount", ErrAmountNegative)
	}

	r.ReportTotals = r.ReportAmounts.Totals(r.CarryForward)

	return nil
}

// BeforeCreate resolves the carry forward so the first set of totals is
// already based on the previous period.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	_ = r.DefaultModel.BeforeCreate(tx)

	if err := checkChurchActive(tx, r.ChurchID); err != nil {
		return err
	}

	if r.Version == 0 {
		r.Version = 1
	}

	if err := r.resolveCarryForward(tx); err != nil {
		return err
	}

	r.ReportTotals = r.ReportAmounts.Totals(r.CarryForward)

	return nil
}

// resolveCarryForward loads the closing balance of the previous period. The
// value from the request only counts for the first report of a church.
func (r *Report) resolveCarryForward(tx *gorm.DB) error {
	previous := r.Period().Previous()

	var report Report
	err := tx.Where(Report{ChurchID: r.ChurchID, Year: previous.Year, Month: int(previous.Month)}).First(&report).Error
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil
		}

		return err
	}

	r.CarryForward = report.ClosingBalance
	return nil
}

// Save persists all report fields. expected is the version the caller read,
// the write only happens when the stored version still matches it.
//
// The explicit Select keeps gorm from falling back to an insert when the
// version check matches no row.
func (r *Report) Save(db *gorm.DB, expected int) error {
	r.Version = expected + 1

	res := db.Where("version = ?", expected).Select("*").Save(r)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrReportVersionStale
	}

	return nil
}

// Submit hands the report over for review. A report in correction goes back
// to pending so that the resubmission passes review from the start.
func (r *Report) Submit(db *gorm.DB, expected int) error {
	switch r.State {
	case ReportStatePending:
		r.State = ReportStateInReview
	case ReportStateCorrection:
		r.State = ReportStatePending
	default:
		return fmt.Errorf("%w: %q can not be submitted", ErrReportState, r.State)
	}

	return r.Save(db, expected)
}

// Approve accepts a report under review.
func (r *Report) Approve(db *gorm.DB, expected int) error {
	if r.State != ReportStateInReview {
		return fmt.Errorf("%w: only reports under review can be approved, not %q", ErrReportState, r.State)
	}

	r.State = ReportStateApproved
	return r.Save(db, expected)
}

// Reject turns down a report under review.
func (r *Report) Reject(db *gorm.DB, expected int) error {
	if r.State != ReportStateInReview {
		return fmt.Errorf("%w: only reports under review can be rejected, not %q", ErrReportState, r.State)
	}

	r.State = ReportStateRejected
	return r.Save(db, expected)
}

// RequestCorrection returns a report under review to the church for fixes.
func (r *Report) RequestCorrection(db *gorm.DB, expected int) error {
	if r.State != ReportStateInReview {
		return fmt.Errorf("%w: only reports under review can be sent back for correction, not %q", ErrReportState, r.State)
	}

	r.State = ReportStateCorrection
	return r.Save(db, expected)
}

// Reopen returns a rejected report to pending.
func (r *Report) Reopen(db *gorm.DB, expected int) error {
	if r.State != ReportStateRejected {
		return fmt.Errorf("%w: only rejected reports can be reopened, not %q", ErrReportState, r.State)
	}

	r.State = ReportStatePending
	return r.Save(db, expected)
}

// Process posts the national shares of an approved report to the funds and
// marks the report as processed. Both happen in one transaction, a version
// conflict rolls the postings back. Processing an already processed report
// is a no-op so that retries are safe.
func (r *Report) Process(db *gorm.DB, expected int) error {
	if r.State == ReportStateProcessed {
		return nil
	}

	if r.State != ReportStateApproved {
		return fmt.Errorf("%w: only approved reports can be processed, not %q", ErrReportState, r.State)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().In(time.UTC)
		r.State = ReportStateProcessed
		r.ProcessedAt = &now

		if err := r.Save(tx, expected); err != nil {
			return err
		}

		var church Church
		if err := tx.First(&church, r.ChurchID).Error; err != nil {
			return err
		}

		period := r.Period().String()

		postings := []struct {
			fund   string
			amount decimal.Decimal
		}{
			{nationalFundName, r.NationalFund},
			{"Misiones", r.MissionsOffering},
			{"Lazos de Amor", r.LazosAmor},
			{"Misión Posible", r.MisionPosible},
			{"APY", r.APYOffering},
			{"Instituto Bíblico", r.InstituteOffering},
		}

		for _, posting := range postings {
			if !posting.amount.IsPositive() {
				continue
			}

			fund, err := ensureFund(tx, posting.fund)
			if err != nil {
				return err
			}

			movement := FundMovement{
				FundID:   fund.ID,
				Type:     MovementIncoming,
				Amount:   posting.amount,
				Date:     now,
				Concept:  fmt.Sprintf("%s %s %s", posting.fund, church.Name, period),
				ReportID: &r.ID,
			}

			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
