package models_test

import (
	"sync"
	"time"

	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestFundNameUnique() {
	suite.createTestFund(models.Fund{Name: "Fondo Nacional"})

	fund := models.Fund{Name: "Fondo Nacional", Active: true}
	err := models.DB.Create(&fund).Error
	suite.Assert().ErrorIs(err, models.ErrFundNameNotUnique)
}

func (suite *TestSuiteStandard) TestFundNameEmpty() {
	fund := models.Fund{Name: "   "}
	err := models.DB.Create(&fund).Error
	suite.Assert().ErrorIs(err, models.ErrFundNameEmpty)
}

func (suite *TestSuiteStandard) TestFundBalance() {
	fund := suite.createTestFund(models.Fund{})

	jan10 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	jan20 := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	feb5 := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

	suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(1000), Date: jan10, Concept: "Diezmo"})
	suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(500), Date: jan20, Concept: "Ofrenda"})
	suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementOutgoing, Amount: decimal.NewFromInt(300), Date: feb5, Concept: "Ayuda"})

	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(1200)), "balance is %s", balance)

	// Cutoff before the outgoing movement
	balance, err = fund.Balance(models.DB, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC))
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(1500)), "balance is %s", balance)

	// A movement dated exactly at the cutoff is included
	balance, err = fund.Balance(models.DB, jan20)
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(1500)), "balance is %s", balance)

	// Cutoff before any movement
	balance, err = fund.Balance(models.DB, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)
	suite.Assert().True(balance.IsZero(), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestMovementValidation() {
	fund := suite.createTestFund(models.Fund{})
	other := suite.createTestFund(models.Fund{})

	err := models.DB.Create(&models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.Zero, Concept: "x"}).Error
	suite.Assert().ErrorIs(err, models.ErrMovementAmountNotPositive)

	err = models.DB.Create(&models.FundMovement{FundID: fund.ID, Type: "retiro", Amount: decimal.NewFromInt(10), Concept: "x"}).Error
	suite.Assert().ErrorIs(err, models.ErrMovementType)

	err = models.DB.Create(&models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, DestinationFundID: &other.ID, Amount: decimal.NewFromInt(10), Concept: "x"}).Error
	suite.Assert().ErrorIs(err, models.ErrMovementDestinationSet)

	err = models.DB.Create(&models.FundMovement{FundID: fund.ID, Type: models.MovementTransfer, Amount: decimal.NewFromInt(10), Concept: "x"}).Error
	suite.Assert().ErrorIs(err, models.ErrTransferDestinationMissing)

	err = models.DB.Create(&models.FundMovement{FundID: fund.ID, Type: models.MovementTransfer, DestinationFundID: &fund.ID, Amount: decimal.NewFromInt(10), Concept: "x"}).Error
	suite.Assert().ErrorIs(err, models.ErrTransferSameFund)
}

func (suite *TestSuiteStandard) TestMovementImmutable() {
	fund := suite.createTestFund(models.Fund{})
	movement := suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(100), Concept: "Ofrenda"})

	changed := movement
	changed.Concept = "changed"
	err := models.DB.Model(&movement).Updates(changed).Error
	suite.Assert().ErrorIs(err, models.ErrMovementImmutable)
}

func (suite *TestSuiteStandard) TestMovementPost() {
	fund := suite.createTestFund(models.Fund{})

	incoming := models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(500), Concept: "Diezmo"}
	suite.Require().NoError(incoming.Post(models.DB))

	outgoing := models.FundMovement{FundID: fund.ID, Type: models.MovementOutgoing, Amount: decimal.NewFromInt(200), Concept: "Ayuda"}
	suite.Require().NoError(outgoing.Post(models.DB))

	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(300)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestMovementPostOverdraw() {
	fund := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(100), Concept: "Ofrenda"})

	overdraw := models.FundMovement{FundID: fund.ID, Type: models.MovementOutgoing, Amount: decimal.NewFromInt(150), Concept: "Ayuda"}
	suite.Assert().ErrorIs(overdraw.Post(models.DB), models.ErrInsufficientFunds)

	// The balance is untouched after the rejected movement
	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(100)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestMovementPostOverdrawForced() {
	fund := suite.createTestFund(models.Fund{})

	forced := models.FundMovement{FundID: fund.ID, Type: models.MovementOutgoing, Amount: decimal.NewFromInt(50), Concept: "Adelanto", Forced: true}
	suite.Require().NoError(forced.Post(models.DB))

	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(-50)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestMovementPostAllowsNegative() {
	fund := suite.createTestFund(models.Fund{AllowsNegative: true})

	outgoing := models.FundMovement{FundID: fund.ID, Type: models.MovementOutgoing, Amount: decimal.NewFromInt(75), Concept: "Anticipo"}
	suite.Require().NoError(outgoing.Post(models.DB))

	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(-75)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestMovementPostInactiveFund() {
	fund := suite.createTestFund(models.Fund{})
	suite.Require().NoError(fund.Deactivate(models.DB))

	incoming := models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(10), Concept: "Ofrenda"}
	suite.Assert().ErrorIs(incoming.Post(models.DB), models.ErrFundInactive)
}

func (suite *TestSuiteStandard) TestMovementPostTransferRejected() {
	source := suite.createTestFund(models.Fund{})
	destination := suite.createTestFund(models.Fund{})

	movement := models.FundMovement{FundID: source.ID, Type: models.MovementTransfer, DestinationFundID: &destination.ID, Amount: decimal.NewFromInt(10), Concept: "x"}
	suite.Assert().ErrorIs(movement.Post(models.DB), models.ErrMovementType)
}

func (suite *TestSuiteStandard) TestTransfer() {
	source := suite.createTestFund(models.Fund{})
	destination := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: source.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(1000), Concept: "Ofrenda"})

	movement, err := models.Transfer(models.DB, source.ID, destination.ID, decimal.NewFromInt(400), time.Time{}, "Aporte congreso")
	suite.Require().NoError(err)
	suite.Assert().Equal(models.MovementTransfer, movement.Type)
	suite.Require().NotNil(movement.DestinationFundID)

	sourceBalance, err := source.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(sourceBalance.Equal(decimal.NewFromInt(600)), "source balance is %s", sourceBalance)

	destinationBalance, err := destination.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(destinationBalance.Equal(decimal.NewFromInt(400)), "destination balance is %s", destinationBalance)

	// Both legs live in a single movement
	var count int64
	suite.Require().NoError(models.DB.Model(&models.FundMovement{}).Where("type = ?", models.MovementTransfer).Count(&count).Error)
	suite.Assert().Equal(int64(1), count)
}

func (suite *TestSuiteStandard) TestTransferInsufficientFunds() {
	source := suite.createTestFund(models.Fund{})
	destination := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: source.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(100), Concept: "Ofrenda"})

	_, err := models.Transfer(models.DB, source.ID, destination.ID, decimal.NewFromInt(200), time.Time{}, "too much")
	suite.Assert().ErrorIs(err, models.ErrInsufficientFunds)

	// Nothing was written
	var count int64
	suite.Require().NoError(models.DB.Model(&models.FundMovement{}).Where("type = ?", models.MovementTransfer).Count(&count).Error)
	suite.Assert().Equal(int64(0), count)
}

func (suite *TestSuiteStandard) TestTransferSameFund() {
	fund := suite.createTestFund(models.Fund{})

	_, err := models.Transfer(models.DB, fund.ID, fund.ID, decimal.NewFromInt(10), time.Time{}, "loop")
	suite.Assert().ErrorIs(err, models.ErrTransferSameFund)
}

func (suite *TestSuiteStandard) TestTransferInactiveFund() {
	source := suite.createTestFund(models.Fund{})
	destination := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: source.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(100), Concept: "Ofrenda"})
	suite.Require().NoError(destination.Deactivate(models.DB))

	_, err := models.Transfer(models.DB, source.ID, destination.ID, decimal.NewFromInt(10), time.Time{}, "x")
	suite.Assert().ErrorIs(err, models.ErrFundInactive)
}

func (suite *TestSuiteStandard) TestTransferFromNegativeFund() {
	source := suite.createTestFund(models.Fund{AllowsNegative: true})
	destination := suite.createTestFund(models.Fund{})

	_, err := models.Transfer(models.DB, source.ID, destination.ID, decimal.NewFromInt(500), time.Time{}, "uncovered")
	suite.Require().NoError(err)

	balance, err := source.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(-500)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestTransferConcurrentNoDoubleSpend() {
	source := suite.createTestFund(models.Fund{})
	destination := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: source.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(100), Concept: "Ofrenda"})

	errs := make(chan error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := models.Transfer(models.DB, source.ID, destination.ID, decimal.NewFromInt(80), time.Time{}, "concurrent")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}

	// Exactly one of the two transfers must lose
	suite.Require().Len(failures, 1)
	suite.Assert().ErrorIs(failures[0], models.ErrInsufficientFunds)

	balance, err := source.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(20)), "balance is %s", balance)
}

func (suite *TestSuiteStandard) TestFundDeactivateKeepsHistory() {
	fund := suite.createTestFund(models.Fund{})
	suite.createTestMovement(models.FundMovement{FundID: fund.ID, Type: models.MovementIncoming, Amount: decimal.NewFromInt(300), Concept: "Ofrenda"})

	suite.Require().NoError(fund.Deactivate(models.DB))
	suite.Require().NoError(fund.Deactivate(models.DB))

	balance, err := fund.Balance(models.DB, time.Time{})
	suite.Require().NoError(err)
	suite.Assert().True(balance.Equal(decimal.NewFromInt(300)), "balance is %s", balance)
}
