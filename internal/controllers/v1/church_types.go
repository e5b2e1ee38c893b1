package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

type ChurchEditable struct {
	Name   string `json:"name" example:"IPU Villa Morra"`                  // Unique name of the church
	City   string `json:"city" example:"Asunción" default:""`              // City the church is located in
	Pastor string `json:"pastor" example:"Venancio Ruiz Díaz" default:""`  // Name of the pastor leading the church
	Phone  string `json:"phone" example:"+595 981 555 123" default:""`     // Contact phone number
	Active bool   `json:"active" example:"true" default:"true"`            // Does the church currently submit reports?
}

// model returns the database resource for the API representation of the editable fields
func (editable ChurchEditable) model() models.Church {
	return models.Church{
		Name:   editable.Name,
		City:   editable.City,
		Pastor: editable.Pastor,
		Phone:  editable.Phone,
		Active: editable.Active,
	}
}

type ChurchLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/churches/8271815b-12c7-4ab8-bd09-55e4d1f26e5d"`              // The church itself
	Reports      string `json:"reports" example:"https://example.com/api/v1/reports?church=8271815b-12c7-4ab8-bd09-55e4d1f26e5d"`     // Monthly reports of this church
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?church=8271815b-12c7-4ab8-bd09-55e4d1f26e5d"` // Cash book transactions of this church
}

// Church is the representation of a Church in API v1.
type Church struct {
	models.DefaultModel
	ChurchEditable
	Links ChurchLinks `json:"links"`
}

// newChurch returns the API v1 representation of the resource
func newChurch(c *gin.Context, model models.Church) Church {
	url := c.GetString(string(models.DBContextURL))

	return Church{
		DefaultModel: model.DefaultModel,
		ChurchEditable: ChurchEditable{
			Name:   model.Name,
			City:   model.City,
			Pastor: model.Pastor,
			Phone:  model.Phone,
			Active: model.Active,
		},
		Links: ChurchLinks{
			Self:         fmt.Sprintf("%s/v1/churches/%s", url, model.ID),
			Reports:      fmt.Sprintf("%s/v1/reports?church=%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?church=%s", url, model.ID),
		},
	}
}

type ChurchListResponse struct {
	Data       []Church    `json:"data"`                                                          // List of churches
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type ChurchCreateResponse struct {
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []ChurchResponse `json:"data"`                                                          // List of created Churches
}

func (t *ChurchCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, ChurchResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type ChurchResponse struct {
	Error *string `json:"error" example:"the church name must be set"` // The error, if any occurred for this church
	Data  *Church `json:"data"`                                       // The Church data, if creation was successful
}

type ChurchQueryFilter struct {
	Name   string `form:"name" filterField:"false"`   // Name of the church. Matches partially.
	City   string `form:"city" filterField:"false"`   // City of the church. Matches partially.
	Pastor string `form:"pastor" filterField:"false"` // Name of the pastor. Matches partially.
	Active bool   `form:"active"`                     // Is the church active?
	Offset uint   `form:"offset" filterField:"false"` // The offset of the first Church returned. Defaults to 0.
	Limit  int    `form:"limit" filterField:"false"`  // Maximum number of Churches to return. Defaults to 50.
}

func (f ChurchQueryFilter) model() models.Church {
	// This does not set the string fields since they are
	// handled in the controller function
	return ChurchEditable{
		Active: f.Active,
	}.model()
}
