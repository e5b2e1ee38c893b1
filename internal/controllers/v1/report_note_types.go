package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

type ReportNoteEditable struct {
	Text string `json:"text" example:"Falta el número de recibo del depósito"` // The note text
}

type ReportNoteLinks struct {
	Report string `json:"report" example:"https://example.com/api/v1/reports/2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"` // The report the note belongs to
}

// ReportNote is the representation of a ReportNote in API v1.
type ReportNote struct {
	models.DefaultModel
	ReportNoteEditable
	ReportID uuid.UUID       `json:"reportId" example:"2c0bb1e6-b38b-4eb6-a7a4-d4a85c57eb2d"` // ID of the report the note belongs to
	ActorID  uuid.UUID       `json:"actorId" example:"d26b1b30-5fc8-4d7a-b0a5-1906b3feedf4"`  // ID of the actor that wrote the note
	Links    ReportNoteLinks `json:"links"`
}

// newReportNote returns the API v1 representation of the resource
func newReportNote(c *gin.Context, model models.ReportNote) ReportNote {
	url := c.GetString(string(models.DBContextURL))

	return ReportNote{
		DefaultModel: model.DefaultModel,
		ReportNoteEditable: ReportNoteEditable{
			Text: model.Text,
		},
		ReportID: model.ReportID,
		ActorID:  model.ActorID,
		Links: ReportNoteLinks{
			Report: fmt.Sprintf("%s/v1/reports/%s", url, model.ReportID),
		},
	}
}

type ReportNoteListResponse struct {
	Data  []ReportNote `json:"data"`                                                          // List of notes, oldest first
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type ReportNoteResponse struct {
	Error *string     `json:"error" example:"the note text must be set"` // The error, if any occurred for this note
	Data  *ReportNote `json:"data"`                                      // The note data, if creation was successful
}
