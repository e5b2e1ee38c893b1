package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/shopspring/decimal"
)

type FundEditable struct {
	Name           string `json:"name" example:"Misiones"`                                       // Unique name of the fund
	Description    string `json:"description" example:"Ofrendas para la obra misionera" default:""` // What the fund is used for
	AllowsNegative bool   `json:"allowsNegative" example:"false" default:"false"`                // May the fund be overdrawn?
	Active         bool   `json:"active" example:"true" default:"true"`                          // Does the fund accept new movements?
}

// model returns the database resource for the API representation of the editable fields
func (editable FundEditable) model() models.Fund {
	return models.Fund{
		Name:           editable.Name,
		Description:    editable.Description,
		AllowsNegative: editable.AllowsNegative,
		Active:         editable.Active,
	}
}

type FundLinks struct {
	Self      string `json:"self" example:"https://example.com/api/v1/funds/ec6b8e96-3d42-49ca-b9b6-f4ab095c4600"`           // The fund itself
	Balance   string `json:"balance" example:"https://example.com/api/v1/funds/ec6b8e96-3d42-49ca-b9b6-f4ab095c4600/balance"` // The current balance of the fund
	Movements string `json:"movements" example:"https://example.com/api/v1/movements?fund=ec6b8e96-3d42-49ca-b9b6-f4ab095c4600"` // Ledger movements of this fund
}

// Fund is the representation of a Fund in API v1.
type Fund struct {
	models.DefaultModel
	FundEditable
	Links FundLinks `json:"links"`
}

// newFund returns the API v1 representation of the resource
func newFund(c *gin.Context, model models.Fund) Fund {
	url := c.GetString(string(models.DBContextURL))

	return Fund{
		DefaultModel: model.DefaultModel,
		FundEditable: FundEditable{
			Name:           model.Name,
			Description:    model.Description,
			AllowsNegative: model.AllowsNegative,
			Active:         model.Active,
		},
		Links: FundLinks{
			Self:      fmt.Sprintf("%s/v1/funds/%s", url, model.ID),
			Balance:   fmt.Sprintf("%s/v1/funds/%s/balance", url, model.ID),
			Movements: fmt.Sprintf("%s/v1/movements?fund=%s", url, model.ID),
		},
	}
}

type FundListResponse struct {
	Data       []Fund      `json:"data"`                                                          // List of funds
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type FundCreateResponse struct {
	Error *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []FundResponse `json:"data"`                                                          // List of created Funds
}

func (t *FundCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, FundResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type FundResponse struct {
	Error *string `json:"error" example:"the fund name must be set"` // The error, if any occurred for this fund
	Data  *Fund   `json:"data"`                                      // The Fund data, if creation was successful
}

// FundBalance is the balance of a fund at a point in time. It is always
// derived from the ledger, never stored.
type FundBalance struct {
	Balance decimal.Decimal `json:"balance" example:"1500000"` // Signed sum of all movements up to asOf
	AsOf    *time.Time      `json:"asOf"`                      // Cutoff of the calculation. Empty means all movements counted.
}

type FundBalanceResponse struct {
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  *FundBalance `json:"data"`                                                          // The balance data
}

type FundQueryFilter struct {
	Name   string `form:"name" filterField:"false"` // Name of the fund. Matches partially.
	Active bool   `form:"active"`                   // Is the fund active?
	Offset uint   `form:"offset" filterField:"false"` // The offset of the first Fund returned. Defaults to 0.
	Limit  int    `form:"limit" filterField:"false"`  // Maximum number of Funds to return. Defaults to 50.
}

func (f FundQueryFilter) model() models.Fund {
	// This does not set the string fields since they are
	// handled in the controller function
	return FundEditable{
		Active: f.Active,
	}.model()
}
