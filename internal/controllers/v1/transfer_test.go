package v1_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/ipupy-tesoreria/backend/internal/controllers/v1"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/ipupy-tesoreria/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransfer(t *testing.T, transfer v1.TransferRequest, expectedStatus ...int) v1.MovementResponse {
	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/transfers", transfer, test.Admin(t))
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var response v1.MovementResponse
	test.DecodeResponse(t, &r, &response)

	return response
}

// TestTransfersOptions verifies that OPTIONS requests are handled correctly.
func (suite *TestSuiteStandard) TestTransfersOptions() {
	r := test.Request(suite.T(), http.MethodOptions, "http://example.com/v1/transfers", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	assert.Equal(suite.T(), "OPTIONS, POST", r.Header().Get("allow"))
}

// TestTransfersCreate verifies that a transfer moves the amount between the
// funds as a single ledger movement.
func (suite *TestSuiteStandard) TestTransfersCreate() {
	source := createTestFund(suite.T(), v1.FundEditable{Name: "Fondo Nacional"})
	destination := createTestFund(suite.T(), v1.FundEditable{Name: "Misiones"})

	_ = createTestMovement(suite.T(), v1.MovementEditable{
		FundID: source.Data.ID,
		Type:   models.MovementIncoming,
		Amount: decimal.NewFromInt(100000),
	})

	transfer := createTestTransfer(suite.T(), v1.TransferRequest{
		SourceFundID:      source.Data.ID,
		DestinationFundID: destination.Data.ID,
		Amount:            decimal.NewFromInt(30000),
		Concept:           "Aporte para la campaña misionera",
	})

	assert.Equal(suite.T(), models.MovementTransfer, transfer.Data.Type)
	assert.Equal(suite.T(), source.Data.ID, transfer.Data.FundID)
	require.NotNil(suite.T(), transfer.Data.DestinationFundID)
	assert.Equal(suite.T(), destination.Data.ID, *transfer.Data.DestinationFundID)
	assert.NotEmpty(suite.T(), transfer.Data.Links.Destination)

	sourceBalance := balanceOf(suite.T(), source, test.Admin(suite.T()))
	assert.True(suite.T(), sourceBalance.Equal(decimal.NewFromInt(70000)), "source balance is %s", sourceBalance)

	destinationBalance := balanceOf(suite.T(), destination, test.Admin(suite.T()))
	assert.True(suite.T(), destinationBalance.Equal(decimal.NewFromInt(30000)), "destination balance is %s", destinationBalance)

	// Both legs ride on one movement
	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/movements?type=transferencia", "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var movements v1.MovementListResponse
	test.DecodeResponse(suite.T(), &r, &movements)
	assert.Len(suite.T(), movements.Data, 1)
}

// TestTransfersCreateFails verifies that transfers fail where they should.
func (suite *TestSuiteStandard) TestTransfersCreateFails() {
	source := createTestFund(suite.T(), v1.FundEditable{Name: "Fondo Nacional"})
	destination := createTestFund(suite.T(), v1.FundEditable{Name: "Misiones"})

	inactive := createTestFund(suite.T(), v1.FundEditable{Name: "Fondo viejo"})
	r := test.Request(suite.T(), http.MethodDelete, inactive.Data.Links.Self, "", test.Admin(suite.T()))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	_ = createTestMovement(suite.T(), v1.MovementEditable{
		FundID: source.Data.ID,
		Type:   models.MovementIncoming,
		Amount: decimal.NewFromInt(50000),
	})

	tests := []struct {
		name     string
		transfer v1.TransferRequest
		status   int
		contains string
	}{
		{
			"Balance does not cover",
			v1.TransferRequest{SourceFundID: source.Data.ID, DestinationFundID: destination.Data.ID, Amount: decimal.NewFromInt(999999)},
			http.StatusUnprocessableEntity, models.ErrInsufficientFunds.Error(),
		},
		{
			"Same fund",
			v1.TransferRequest{SourceFundID: source.Data.ID, DestinationFundID: source.Data.ID, Amount: decimal.NewFromInt(1000)},
			http.StatusBadRequest, models.ErrTransferSameFund.Error(),
		},
		{
			"No source with this ID",
			v1.TransferRequest{SourceFundID: uuid.New(), DestinationFundID: destination.Data.ID, Amount: decimal.NewFromInt(1000)},
			http.StatusNotFound, models.ErrResourceNotFound.Error(),
		},
		{
			"No destination with this ID",
			v1.TransferRequest{SourceFundID: source.Data.ID, DestinationFundID: uuid.New(), Amount: decimal.NewFromInt(1000)},
			http.StatusNotFound, models.ErrResourceNotFound.Error(),
		},
		{
			"Zero amount",
			v1.TransferRequest{SourceFundID: source.Data.ID, DestinationFundID: destination.Data.ID, Amount: decimal.Zero},
			http.StatusBadRequest, models.ErrMovementAmountNotPositive.Error(),
		},
		{
			"Inactive destination",
			v1.TransferRequest{SourceFundID: source.Data.ID, DestinationFundID: inactive.Data.ID, Amount: decimal.NewFromInt(1000)},
			http.StatusBadRequest, models.ErrFundInactive.Error(),
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			response := createTestTransfer(t, tt.transfer, tt.status)
			assert.Contains(t, *response.Error, tt.contains)
		})
	}

	suite.T().Run("No body", func(t *testing.T) {
		r := test.Request(t, http.MethodPost, "http://example.com/v1/transfers", "", test.Admin(t))
		test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
	})

	// Nothing may be written by any of the failed attempts
	balance := balanceOf(suite.T(), source, test.Admin(suite.T()))
	assert.True(suite.T(), balance.Equal(decimal.NewFromInt(50000)), "source balance is %s", balance)
}

// TestTransfersScope verifies that the permission is checked against the
// source fund.
func (suite *TestSuiteStandard) TestTransfersScope() {
	source := createTestFund(suite.T(), v1.FundEditable{Name: "Misiones"})
	destination := createTestFund(suite.T(), v1.FundEditable{Name: "Lazos de Amor"})

	_ = createTestMovement(suite.T(), v1.MovementEditable{
		FundID: source.Data.ID,
		Type:   models.MovementIncoming,
		Amount: decimal.NewFromInt(100000),
	})

	body := v1.TransferRequest{
		SourceFundID:      source.Data.ID,
		DestinationFundID: destination.Data.ID,
		Amount:            decimal.NewFromInt(10000),
	}

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"Director of the source", test.FundDirector(suite.T(), source.Data.ID), http.StatusCreated},
		{"Director of the destination only", test.FundDirector(suite.T(), destination.Data.ID), http.StatusForbidden},
		{"Treasurer", test.Treasurer(suite.T()), http.StatusCreated},
		{"Pastor", test.Pastor(suite.T(), uuid.New()), http.StatusForbidden},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/transfers", body, tt.headers)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

// TestTransfersIdempotency verifies that retrying a successful transfer with
// the same key does not move the amount twice.
func (suite *TestSuiteStandard) TestTransfersIdempotency() {
	source := createTestFund(suite.T(), v1.FundEditable{Name: "Fondo Nacional"})
	destination := createTestFund(suite.T(), v1.FundEditable{Name: "Misiones"})

	_ = createTestMovement(suite.T(), v1.MovementEditable{
		FundID: source.Data.ID,
		Type:   models.MovementIncoming,
		Amount: decimal.NewFromInt(100000),
	})

	body := v1.TransferRequest{
		SourceFundID:      source.Data.ID,
		DestinationFundID: destination.Data.ID,
		Amount:            decimal.NewFromInt(40000),
	}

	headers := test.Admin(suite.T())
	headers["Idempotency-Key"] = "transfer-2026-07"

	first := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/transfers", body, headers)
	test.AssertHTTPStatus(suite.T(), &first, http.StatusCreated)

	var initial v1.MovementResponse
	test.DecodeResponse(suite.T(), &first, &initial)

	retry := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/transfers", body, headers)
	test.AssertHTTPStatus(suite.T(), &retry, http.StatusCreated)

	var replayed v1.MovementResponse
	test.DecodeResponse(suite.T(), &retry, &replayed)
	assert.Equal(suite.T(), initial.Data.ID, replayed.Data.ID)

	sourceBalance := balanceOf(suite.T(), source, test.Admin(suite.T()))
	assert.True(suite.T(), sourceBalance.Equal(decimal.NewFromInt(60000)), "source balance is %s", sourceBalance)

	destinationBalance := balanceOf(suite.T(), destination, test.Admin(suite.T()))
	assert.True(suite.T(), destinationBalance.Equal(decimal.NewFromInt(40000)), "destination balance is %s", destinationBalance)
}

// TestTransfersDBClosed verifies that errors are processed correctly when
// the database is closed.
func (suite *TestSuiteStandard) TestTransfersDBClosed() {
	source := createTestFund(suite.T(), v1.FundEditable{})
	destination := createTestFund(suite.T(), v1.FundEditable{})

	suite.CloseDB()

	createTestTransfer(suite.T(), v1.TransferRequest{
		SourceFundID:      source.Data.ID,
		DestinationFundID: destination.Data.ID,
		Amount:            decimal.NewFromInt(1000),
	}, http.StatusInternalServerError)
}
