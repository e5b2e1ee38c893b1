package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferRequest moves an amount between two funds.
type TransferRequest struct {
	SourceFundID      uuid.UUID       `json:"sourceFundId" example:"ec6b8e96-3d42-49ca-b9b6-f4ab095c4600"`      // Fund the amount is taken from
	DestinationFundID uuid.UUID       `json:"destinationFundId" example:"a1b8e6a3-4f4a-42ae-8c35-27e5bf8fc2c5"` // Fund the amount goes to
	Amount            decimal.Decimal `json:"amount" example:"250000"`                                          // The amount to transfer
	Date              time.Time       `json:"date" example:"2026-07-31T00:00:00Z"`                              // Date of the transfer. Defaults to the current time.
	Concept           string          `json:"concept" example:"Aporte para la campaña misionera" default:""`    // What the transfer is for
}

// RegisterTransferRoutes registers the routes for transfers with
// the RouterGroup that is passed.
func RegisterTransferRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsTransfers)
	r.POST("", CreateTransfer)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transfers
// @Success		204
// @Router			/v1/transfers [options]
func OptionsTransfers(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Create transfer
// @Description	Moves an amount between two funds as a single ledger movement carrying both legs. The source balance must cover the amount unless the source fund allows a negative balance. With an Idempotency-Key header, retries of a successful request return the movement already posted instead of posting again.
// @Tags			Transfers
// @Accept			json
// @Produce		json
// @Success		201				{object}	MovementResponse
// @Failure		400				{object}	MovementResponse
// @Failure		403				{object}	MovementResponse
// @Failure		404				{object}	MovementResponse
// @Failure		409				{object}	MovementResponse
// @Failure		422				{object}	MovementResponse
// @Failure		500				{object}	MovementResponse
// @Param			transfer		body	TransferRequest	true	"Transfer"
// @Param			Idempotency-Key	header	string			false	"Key that makes retries of this request safe"
// @Router			/v1/transfers [post]
func CreateTransfer(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var request TransferRequest

	// Bind data and return error if not possible
	err := httputil.BindData(c, &request)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	// The permission is checked against the source fund, money only ever
	// leaves a fund the actor is responsible for.
	if err := authz.Authorize(ctx, authz.ActionTransferCreate, authz.Resource{FundID: &request.SourceFundID}); err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	key := c.GetHeader("Idempotency-Key")

	var record models.IdempotencyKey
	if key != "" {
		var replay bool
		record, replay, err = models.StartIdempotency(models.DB, key, "transfers")
		if err != nil {
			e := err.Error()
			c.JSON(status(err), MovementResponse{
				Error: &e,
			})
			return
		}

		if replay {
			replayTransfer(c, record)
			return
		}
	}

	var movement models.FundMovement
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = models.Transfer(tx, request.SourceFundID, request.DestinationFundID, request.Amount, request.Date, request.Concept)
		if err != nil {
			return err
		}

		// Success of the request and of the idempotency record commit
		// together, a rollback keeps the key claimable.
		if key != "" {
			return record.Succeed(tx, movement.ID)
		}

		return nil
	})
	if err != nil {
		// Release the key so the client can retry
		if key != "" {
			_ = record.Fail(models.DB)
		}

		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	data := newMovement(c, movement)
	c.JSON(http.StatusCreated, MovementResponse{Data: &data})
}

// replayTransfer answers a repeated request with the movement its first
// run posted.
func replayTransfer(c *gin.Context, record models.IdempotencyKey) {
	ids, err := record.ResourceIDs()
	if err != nil || len(ids) != 1 {
		e := models.ErrGeneral.Error()
		c.JSON(http.StatusInternalServerError, MovementResponse{
			Error: &e,
		})
		return
	}

	var movement models.FundMovement
	err = models.DB.First(&movement, ids[0]).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	data := newMovement(c, movement)
	c.JSON(http.StatusCreated, MovementResponse{Data: &data})
}
