package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementType classifies a fund movement. The Spanish values are stored and
// exposed on the wire since they are shared with the clients.
type MovementType string

const (
	MovementIncoming MovementType = "entrada"
	MovementOutgoing MovementType = "salida"
	MovementTransfer MovementType = "transferencia"
)

var (
	ErrMovementType               = errors.New("the movement type must be entrada, salida or transferencia")
	ErrMovementAmountNotPositive  = errors.New("the movement amount must be positive")
	ErrMovementImmutable          = errors.New("movements can not be changed once recorded")
	ErrMovementDestinationSet     = errors.New("only transfers can have a destination fund")
	ErrTransferDestinationMissing = errors.New("a transfer needs a destination fund")
	ErrTransferSameFund           = errors.New("source and destination fund of a transfer must be different")
	ErrInsufficientFunds          = errors.New("the fund balance does not cover this movement")
)

// FundMovement is one immutable entry in the national ledger. A transfer is
// a single movement carrying both legs, the source as FundID and the
// destination as DestinationFundID.
type FundMovement struct {
	DefaultModel
	Fund              Fund            `json:"-"`
	FundID            uuid.UUID       `json:"fundId" gorm:"check:transfer_destination_different,fund_id != destination_fund_id"`
	Type              MovementType    `json:"type" example:"entrada"`
	DestinationFund   *Fund           `json:"-"`
	DestinationFundID *uuid.UUID      `json:"destinationFundId"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,2)" example:"150000"`
	Date              time.Time       `json:"date"`
	Concept           string          `json:"concept"`
	Report            *Report         `json:"-"`
	ReportID          *uuid.UUID      `json:"reportId"` // Set when the movement was posted by processing a report
	Forced            bool            `json:"forced"`   // Overdraw override, only admins may set it
}

// BeforeSave validates the shape of the movement.
func (m *FundMovement) BeforeSave(_ *gorm.DB) error {
	m.Concept = strings.TrimSpace(m.Concept)

	switch m.Type {
	case MovementIncoming, MovementOutgoing:
		if m.DestinationFundID != nil {
			return ErrMovementDestinationSet
		}
	case MovementTransfer:
		if m.DestinationFundID == nil {
			return ErrTransferDestinationMissing
		}

		if *m.DestinationFundID == m.FundID {
			return ErrTransferSameFund
		}
	default:
		return ErrMovementType
	}

	if !m.Amount.IsPositive() {
		return ErrMovementAmountNotPositive
	}

	if m.Date.IsZero() {
		m.Date = time.Now().In(time.UTC)
	} else {
		m.Date = m.Date.In(time.UTC)
	}

	return nil
}

// BeforeUpdate blocks updates, the ledger is append only.
func (m *FundMovement) BeforeUpdate(_ *gorm.DB) error {
	return ErrMovementImmutable
}

func (m *FundMovement) AfterFind(tx *gorm.DB) error {
	_ = m.DefaultModel.AfterFind(tx)

	m.Date = m.Date.In(time.UTC)
	return nil
}

// Post records an entrada or salida after checking the fund. Outgoing
// movements must be covered by the balance unless the fund allows a negative
// balance or an admin forces the movement, which is logged.
func (m *FundMovement) Post(db *gorm.DB) error {
	if m.Type == MovementTransfer {
		return fmt.Errorf("%w: transfers are posted through Transfer", ErrMovementType)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var fund Fund
		if err := lockFund(tx).First(&fund, m.FundID).Error; err != nil {
			return err
		}

		if !fund.Active {
			return ErrFundInactive
		}

		if m.Type == MovementOutgoing && !fund.AllowsNegative {
			balance, err := fund.Balance(tx, time.Time{})
			if err != nil {
				return err
			}

			if balance.LessThan(m.Amount) {
				if !m.Forced {
					return fmt.Errorf("%w: the balance is %s", ErrInsufficientFunds, balance)
				}

				log.Warn().
					Str("fund", fund.Name).
					Str("balance", balance.String()).
					Str("amount", m.Amount.String()).
					Msg("overdraw forced")
			}
		}

		return tx.Create(m).Error
	})
}

// Transfer moves amount between two funds as a single movement carrying both
// legs. The source balance must cover the amount unless the source allows a
// negative balance. Nothing is written when a check fails.
func Transfer(db *gorm.DB, sourceID, destinationID uuid.UUID, amount decimal.Decimal, date time.Time, concept string) (FundMovement, error) {
	if sourceID == destinationID {
		return FundMovement{}, ErrTransferSameFund
	}

	var movement FundMovement
	err := db.Transaction(func(tx *gorm.DB) error {
		var source Fund
		if err := lockFund(tx).First(&source, sourceID).Error; err != nil {
			return err
		}

		var destination Fund
		if err := tx.First(&destination, destinationID).Error; err != nil {
			return err
		}

		if !source.Active || !destination.Active {
			return ErrFundInactive
		}

		if !source.AllowsNegative {
			balance, err := source.Balance(tx, time.Time{})
			if err != nil {
				return err
			}

			if balance.LessThan(amount) {
				return fmt.Errorf("%w: the balance is %s", ErrInsufficientFunds, balance)
			}
		}

		movement = FundMovement{
			FundID:            sourceID,
			Type:              MovementTransfer,
			DestinationFundID: &destinationID,
			Amount:            amount,
			Date:              date,
			Concept:           concept,
		}

		return tx.Create(&movement).Error
	})
	if err != nil {
		return FundMovement{}, err
	}

	return movement, nil
}

// lockFund locks fund rows for the transaction on databases that support row
// locks. SQLite serializes writing transactions on its own.
func lockFund(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	return tx
}
