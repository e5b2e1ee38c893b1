package models_test

import (
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

func (suite *TestSuiteStandard) TestIdempotencyReplay() {
	record, replayed, err := models.StartIdempotency(models.DB, "abc-123", "movements")
	suite.Require().NoError(err)
	suite.Assert().False(replayed)
	suite.Assert().Equal(models.IdempotencyStarted, record.Status)

	created := uuid.New()
	suite.Require().NoError(record.Succeed(models.DB, created))

	// The same key now replays the stored resources
	record, replayed, err = models.StartIdempotency(models.DB, "abc-123", "movements")
	suite.Require().NoError(err)
	suite.Assert().True(replayed)

	ids, err := record.ResourceIDs()
	suite.Require().NoError(err)
	suite.Require().Len(ids, 1)
	suite.Assert().Equal(created, ids[0])
}

func (suite *TestSuiteStandard) TestIdempotencyInFlight() {
	_, _, err := models.StartIdempotency(models.DB, "abc-123", "movements")
	suite.Require().NoError(err)

	_, _, err = models.StartIdempotency(models.DB, "abc-123", "movements")
	suite.Assert().ErrorIs(err, models.ErrIdempotencyInFlight)
}

func (suite *TestSuiteStandard) TestIdempotencyFailedRetry() {
	record, _, err := models.StartIdempotency(models.DB, "abc-123", "transfers")
	suite.Require().NoError(err)
	suite.Require().NoError(record.Fail(models.DB))

	// A failed request may be retried with the same key
	record, replayed, err := models.StartIdempotency(models.DB, "abc-123", "transfers")
	suite.Require().NoError(err)
	suite.Assert().False(replayed)
	suite.Assert().Equal(models.IdempotencyStarted, record.Status)
}

func (suite *TestSuiteStandard) TestIdempotencyKeyPerHandler() {
	_, _, err := models.StartIdempotency(models.DB, "abc-123", "movements")
	suite.Require().NoError(err)

	// The same key on another handler is independent
	_, replayed, err := models.StartIdempotency(models.DB, "abc-123", "transfers")
	suite.Require().NoError(err)
	suite.Assert().False(replayed)
}
