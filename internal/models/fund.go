package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fund represents a national fund, e.g. the missions fund.
type Fund struct {
	DefaultModel
	Name           string `gorm:"uniqueIndex"`
	Description    string
	AllowsNegative bool // Funds that may be overdrawn, e.g. a clearing fund
	Active         bool
}

var (
	ErrFundNameNotUnique = errors.New("the fund name must be unique")
	ErrFundNameEmpty     = errors.New("the fund name must be set")
	ErrFundInactive      = errors.New("the fund is deactivated")
)

// BeforeSave trims whitespace from all strings and verifies that the name
// stays unique. The unique index on the name column remains as a backstop
// for concurrent writes.
func (f *Fund) BeforeSave(tx *gorm.DB) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)

	if f.Name == "" {
		return ErrFundNameEmpty
	}

	var count int64
	err := tx.Model(&Fund{}).Where("name = ? AND id != ?", f.Name, f.ID).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrFundNameNotUnique
	}

	return nil
}

// Deactivate marks the fund as inactive. The movement history and balance
// stay readable, new movements are rejected.
func (f *Fund) Deactivate(db *gorm.DB) error {
	if !f.Active {
		return nil
	}

	f.Active = false
	return db.Model(f).Select("Active").Updates(*f).Error
}

// Balance calculates the fund balance as the signed sum of all movements up
// to and including cutoff. A zero cutoff includes all movements.
//
// The fund gains through incoming movements and transfers to it, and loses
// through outgoing movements and transfers from it. The balance is never
// stored, it is always derived from the ledger.
func (f Fund) Balance(db *gorm.DB, cutoff time.Time) (decimal.Decimal, error) {
	incoming, err := movementsSum(db, FundMovement{FundID: f.ID, Type: MovementIncoming}, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	transfersIn, err := movementsSum(db, FundMovement{DestinationFundID: &f.ID, Type: MovementTransfer}, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	outgoing, err := movementsSum(db, FundMovement{FundID: f.ID, Type: MovementOutgoing}, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	transfersOut, err := movementsSum(db, FundMovement{FundID: f.ID, Type: MovementTransfer}, cutoff)
	if err != nil {
		return decimal.Zero, err
	}

	return incoming.Add(transfersIn).Sub(outgoing).Sub(transfersOut), nil
}

// movementsSum returns the sum of all movement amounts matching the match
// struct, up to and including cutoff. A zero cutoff includes everything.
func movementsSum(db *gorm.DB, match FundMovement, cutoff time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal

	query := db.Table("fund_movements").Where(&match).Where("deleted_at IS NULL").Select("SUM(amount)")
	if !cutoff.IsZero() {
		query = query.Where("datetime(date) <= datetime(?)", cutoff)
	}

	err := query.Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing movements with attributes %v failed: %w", match, err)
	}

	return sum.Decimal, nil
}

// ensureFund returns the fund with the given name, creating it as an active
// fund when it does not exist yet. Designated funds come into existence with
// the first report that feeds them.
func ensureFund(tx *gorm.DB, name string) (Fund, error) {
	var fund Fund
	err := tx.Where(Fund{Name: name}).First(&fund).Error
	if err == nil {
		return fund, nil
	}

	if !errors.Is(err, ErrResourceNotFound) {
		return Fund{}, err
	}

	fund = Fund{Name: name, Active: true}
	err = tx.Create(&fund).Error
	if err != nil {
		return Fund{}, err
	}

	return fund, nil
}
