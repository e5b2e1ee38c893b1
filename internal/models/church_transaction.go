package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/importer/helpers"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChurchTransaction is one row of a church's local cash book. Income and
// expense are separate columns, like in the paper book the churches keep.
type ChurchTransaction struct {
	DefaultModel
	Church     Church          `json:"-"`
	ChurchID   uuid.UUID       `json:"churchId"`
	Date       time.Time       `json:"date"`
	Concept    string          `json:"concept" example:"Ofrenda culto dominical"`
	Income     decimal.Decimal `json:"income" gorm:"type:DECIMAL(20,2)"`
	Expense    decimal.Decimal `json:"expense" gorm:"type:DECIMAL(20,2)"`
	ImportHash string          `json:"importHash"` // The SHA256 hash of a unique combination of values to use in duplicate detection for imports
}

var (
	ErrTransactionEmpty        = errors.New("the transaction needs an income or an expense")
	ErrTransactionConceptEmpty = errors.New("the transaction concept must be set")
)

// Validate checks the cash book row.
func (t ChurchTransaction) Validate() error {
	if strings.TrimSpace(t.Concept) == "" {
		return ErrTransactionConceptEmpty
	}

	if t.Income.IsNegative() {
		return fmt.Errorf("%w: income", ErrAmountNegative)
	}

	if t.Expense.IsNegative() {
		return fmt.Errorf("%w: expense", ErrAmountNegative)
	}

	if t.Income.IsZero() && t.Expense.IsZero() {
		return ErrTransactionEmpty
	}

	return nil
}

func (t *ChurchTransaction) BeforeSave(_ *gorm.DB) error {
	t.Concept = strings.TrimSpace(t.Concept)

	if err := t.Validate(); err != nil {
		return err
	}

	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	return nil
}

// BeforeCreate verifies that the church still accepts new rows.
func (t *ChurchTransaction) BeforeCreate(tx *gorm.DB) error {
	_ = t.DefaultModel.BeforeCreate(tx)

	return checkChurchActive(tx, t.ChurchID)
}

func (t *ChurchTransaction) AfterFind(tx *gorm.DB) error {
	_ = t.DefaultModel.AfterFind(tx)

	t.Date = t.Date.In(time.UTC)
	return nil
}

// Hash calculates the import hash of the row. Two rows with the same church,
// day, concept and amounts are considered the same row.
func (t ChurchTransaction) Hash() string {
	return helpers.Sha256String(fmt.Sprintf("%s%s%s%s%s", t.ChurchID, t.Date.Format("2006-01-02"), strings.TrimSpace(t.Concept), t.Income, t.Expense))
}
