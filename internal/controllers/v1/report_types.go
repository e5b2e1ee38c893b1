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

type ReportEditable struct {
	ChurchID uuid.UUID `json:"churchId" example:"8271815b-12c7-4ab8-bd09-55e4d1f26e5d"` // ID of the church the report belongs to
	Year     int       `json:"year" example:"2026" minimum:"1"`                         // Year of the reporting period
	Month    int       `json:"month" example:"7" minimum:"1" maximum:"12"`              // Month of the reporting period

	models.ReportAmounts

	// Opening balance. Only counts for the first report of a church, later
	// reports continue from the previous closing balance.
	CarryForward decimal.Decimal `json:"carryForward" example:"0" default:"0"`

	DepositReceipt string          `json:"depositReceipt" example:"0001234567" default:""` // Bank receipt number of the national fund deposit
	DepositDate    *time.Time      `json:"depositDate" example:"2026-08-05T00:00:00Z"`     // Day the national fund share was deposited
	DepositAmount  decimal.Decimal `json:"depositAmount" example:"150000" default:"0"`     // Amount deposited for the national funds

	Version int `json:"version" example:"2" default:"0"` // The version of the report this change is based on. Ignored when creating.
}

// model returns the database resource for the API representation of the editable fields
func (editable ReportEditable) model() models.Report {
	return models.Report{
		ChurchID:       editable.ChurchID,
		Year:           editable.Year,
		Month:          editable.Month,
		ReportAmounts:  editable.ReportAmounts,
		CarryForward:   editable.CarryForward,
		DepositReceipt: editable.DepositReceipt,
		DepositDate:    editable.DepositDate,
		DepositAmount:  editable.DepositAmount,
	}
}

type ReportLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v1/reports/2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"`           // The report itself
	Church    string `json:"church" example:"https://example.com/api/v1/churches/8271815b-12c7-4ab8-bd09-55e4d1f26e5d"`        // The church the report belongs to
	Notes     string `json:"notes" example:"https://example.com/api/v1/reports/2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d/notes"`    // Review notes of the report
	Movements string `json:"movements" example:"https://example.com/api/v1/movements?report=2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"` // Fund movements posted from this report
}

// Report is the representation of a Report in API v1.
type Report struct {
	models.DefaultModel
	ReportEditable
	State models.ReportState `json:"state" example:"pendiente"` // Lifecycle state of the report
	models.ReportTotals
	ProcessedAt *time.Time  `json:"processedAt"` // Time the report was posted to the funds
	Links       ReportLinks `json:"links"`
}

// newReport returns the API v1 representation of the resource
func newReport(c *gin.Context, model models.Report) Report {
	url := c.GetString(string(models.DBContextURL))

	return Report{
		DefaultModel: model.DefaultModel,
		ReportEditable: ReportEditable{
			ChurchID:       model.ChurchID,
			Year:           model.Year,
			Month:          model.Month,
			ReportAmounts:  model.ReportAmounts,
			CarryForward:   model.CarryForward,
			DepositReceipt: model.DepositReceipt,
			DepositDate:    model.DepositDate,
			DepositAmount:  model.DepositAmount,
			Version:        model.Version,
		},
		State:        model.State,
		ReportTotals: model.ReportTotals,
		ProcessedAt:  model.ProcessedAt,
		Links: ReportLinks{
			Self:      fmt.Sprintf("%s/v1/reports/%s", url, model.ID),
			Church:    fmt.Sprintf("%s/v1/churches/%s", url, model.ChurchID),
			Notes:     fmt.Sprintf("%s/v1/reports/%s/notes", url, model.ID),
			Movements: fmt.Sprintf("%s/v1/movements?report=%s", url, model.ID),
		},
	}
}

type ReportListResponse struct {
	Data       []Report    `json:"data"`                                                          // List of reports
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type ReportCreateResponse struct {
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []ReportResponse `json:"data"`                                                          // List of created Reports
}

func (t *ReportCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, ReportResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type ReportResponse struct {
	Error *string `json:"error" example:"a report already exists for this church and period"` // The error, if any occurred for this report
	Data  *Report `json:"data"`                                                               // The Report data, if creation was successful
}

// ReportTransitionRequest is the body for all report state transitions.
type ReportTransitionRequest struct {
	Version int `json:"version" example:"1"` // The version of the report the transition is based on
}

type ReportQueryFilter struct {
	ChurchID ipu_uuid.UUID      `form:"church"`                    // ID of the church
	Year     int                `form:"year"`                      // Year of the reporting period
	Month    int                `form:"month"`                     // Month of the reporting period
	State    models.ReportState `form:"state" filterField:"false"` // State of the report
	Offset   uint               `form:"offset" filterField:"false"` // The offset of the first Report returned. Defaults to 0.
	Limit    int                `form:"limit" filterField:"false"`  // Maximum number of Reports to return. Defaults to 50.
}

func (f ReportQueryFilter) model() models.Report {
	// The state is not part of the editable fields and is handled in the
	// controller function
	return ReportEditable{
		ChurchID: f.ChurchID.UUID,
		Year:     f.Year,
		Month:    f.Month,
	}.model()
}
