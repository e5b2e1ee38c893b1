package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/models"
	ipu_uuid "github.com/ipupy-tesoreria/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

type MovementEditable struct {
	FundID uuid.UUID           `json:"fundId" example:"ec6b8e96-3d42-49ca-b9b6-f4ab095c4600"` // Fund the movement belongs to. The source fund for transfers.
	Type   models.MovementType `json:"type" example:"entrada"`                                // entrada, salida or transferencia

	// Destination fund, only set for transfers
	DestinationFundID *uuid.UUID `json:"destinationFundId" example:"a1b8e6a3-4f4a-42ae-8c35-27e5bf8fc2c5"`

	Amount  decimal.Decimal `json:"amount" example:"150000"`                                // The amount of the movement. Always positive, the direction comes from the type.
	Date    time.Time       `json:"date" example:"2026-07-31T00:00:00Z"`                    // Date of the movement. Defaults to the current time.
	Concept string          `json:"concept" example:"Fondo Nacional IPU Luque 2026-07" default:""` // What the movement is for
	Forced  bool            `json:"forced" example:"false" default:"false"`                 // Post an outgoing movement even when the balance does not cover it. Only for administrators.
}

// model returns the database resource for the API representation of the editable fields
func (editable MovementEditable) model() models.FundMovement {
	return models.FundMovement{
		FundID:            editable.FundID,
		Type:              editable.Type,
		DestinationFundID: editable.DestinationFundID,
		Amount:            editable.Amount,
		Date:              editable.Date,
		Concept:           editable.Concept,
		Forced:            editable.Forced,
	}
}

type MovementLinks struct {
	Self        string `json:"self" example:"https://example.com/api/v1/movements/d29f1d6f-baf6-44fe-a4f2-38b86ccd7f9a"`        // The movement itself
	Fund        string `json:"fund" example:"https://example.com/api/v1/funds/ec6b8e96-3d42-49ca-b9b6-f4ab095c4600"`            // The fund of the movement
	Destination string `json:"destination,omitempty" example:"https://example.com/api/v1/funds/a1b8e6a3-4f4a-42ae-8c35-27e5bf8fc2c5"` // The destination fund, only set for transfers
	Report      string `json:"report,omitempty" example:"https://example.com/api/v1/reports/2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"`    // The report that posted the movement, if any
}

// Movement is the representation of a FundMovement in API v1.
type Movement struct {
	models.DefaultModel
	MovementEditable
	ReportID *uuid.UUID    `json:"reportId" example:"2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"` // Set when the movement was posted by processing a report
	Links    MovementLinks `json:"links"`
}

// newMovement returns the API v1 representation of the resource
func newMovement(c *gin.Context, model models.FundMovement) Movement {
	url := c.GetString(string(models.DBContextURL))

	movement := Movement{
		DefaultModel: model.DefaultModel,
		MovementEditable: MovementEditable{
			FundID:            model.FundID,
			Type:              model.Type,
			DestinationFundID: model.DestinationFundID,
			Amount:            model.Amount,
			Date:              model.Date,
			Concept:           model.Concept,
			Forced:            model.Forced,
		},
		ReportID: model.ReportID,
		Links: MovementLinks{
			Self: fmt.Sprintf("%s/v1/movements/%s", url, model.ID),
			Fund: fmt.Sprintf("%s/v1/funds/%s", url, model.FundID),
		},
	}

	if model.DestinationFundID != nil {
		movement.Links.Destination = fmt.Sprintf("%s/v1/funds/%s", url, model.DestinationFundID)
	}

	if model.ReportID != nil {
		movement.Links.Report = fmt.Sprintf("%s/v1/reports/%s", url, model.ReportID)
	}

	return movement
}

type MovementListResponse struct {
	Data       []Movement  `json:"data"`                                                          // List of movements
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

// MovementCreateResponse is the response for a batch of movements. The batch
// is posted atomically, so an error always applies to the whole batch and no
// movements are returned alongside it.
type MovementCreateResponse struct {
	Error *string            `json:"error" example:"movement 2: the fund balance does not cover this movement"` // The error, if any occurred
	Data  []MovementResponse `json:"data"`                                                                      // List of created Movements
}

type MovementResponse struct {
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this movement
	Data  *Movement `json:"data"`                                                          // The Movement data, if creation was successful
}

type MovementQueryFilter struct {
	FundID            ipu_uuid.UUID       `form:"source"`                      // ID of the source fund
	DestinationFundID ipu_uuid.UUID       `form:"destination"`                 // ID of the destination fund
	InvolvedFundID    ipu_uuid.UUID       `form:"fund" filterField:"false"`    // ID of either source or destination fund
	ReportID          ipu_uuid.UUID       `form:"report"`                      // ID of the report that posted the movement
	Type              models.MovementType `form:"type" filterField:"false"`    // Type of the movement
	FromDate          time.Time           `form:"fromDate" filterField:"false"`  // Movements at and after this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided.
	UntilDate         time.Time           `form:"untilDate" filterField:"false"` // Movements before and at this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided.
	Concept           string              `form:"concept" filterField:"false"` // Concept matches this pattern, * matches any characters
	Forced            bool                `form:"forced"`                      // Was the movement forced past the balance check?
	Offset            uint                `form:"offset" filterField:"false"`  // The offset of the first Movement returned. Defaults to 0.
	Limit             int                 `form:"limit" filterField:"false"`   // Maximum number of Movements to return. Defaults to 50.
}

func (f MovementQueryFilter) model() models.FundMovement {
	// If the destination or report ID is nil, use an actual nil, not uuid.Nil
	var destinationID *uuid.UUID
	if f.DestinationFundID != ipu_uuid.Nil {
		destinationID = &f.DestinationFundID.UUID
	}

	var reportID *uuid.UUID
	if f.ReportID != ipu_uuid.Nil {
		reportID = &f.ReportID.UUID
	}

	// This does not set the type, date, concept and involved fund fields
	// since they are handled in the controller function
	return models.FundMovement{
		FundID:            f.FundID.UUID,
		DestinationFundID: destinationID,
		ReportID:          reportID,
		Forced:            f.Forced,
	}
}
