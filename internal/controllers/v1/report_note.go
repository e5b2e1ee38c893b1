package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

// RegisterReportNoteRoutes registers the routes for report notes with
// the RouterGroup that is passed.
func RegisterReportNoteRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/:id/notes", OptionsReportNotes)
	r.GET("/:id/notes", GetReportNotes)
	r.POST("/:id/notes", CreateReportNote)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Reports
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id}/notes [options]
func OptionsReportNotes(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Report{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPost(c)
}

// @Summary		Get report notes
// @Description	Returns the review notes of a report, oldest first
// @Tags			Reports
// @Produce		json
// @Success		200	{object}	ReportNoteListResponse
// @Failure		400	{object}	ReportNoteListResponse
// @Failure		403	{object}	ReportNoteListResponse
// @Failure		404	{object}	ReportNoteListResponse
// @Failure		500	{object}	ReportNoteListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id}/notes [get]
func GetReportNotes(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteListResponse{
			Error: &e,
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteListResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionReportRead, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteListResponse{
			Error: &e,
		})
		return
	}

	var notes []models.ReportNote
	err = models.DB.Where("report_id = ?", report.ID).Order("datetime(created_at) ASC").Find(&notes).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteListResponse{
			Error: &e,
		})
		return
	}

	data := make([]ReportNote, 0)
	for _, note := range notes {
		data = append(data, newReportNote(c, note))
	}

	c.JSON(http.StatusOK, ReportNoteListResponse{Data: data})
}

// @Summary		Create report note
// @Description	Adds a review note to a report. Notes can be written in every report state, they are the only change still allowed on a processed report.
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		201		{object}	ReportNoteResponse
// @Failure		400		{object}	ReportNoteResponse
// @Failure		403		{object}	ReportNoteResponse
// @Failure		404		{object}	ReportNoteResponse
// @Failure		500		{object}	ReportNoteResponse
// @Param			id		path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			note	body		ReportNoteEditable	true	"Note"
// @Router			/v1/reports/{id}/notes [post]
func CreateReportNote(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteResponse{
			Error: &e,
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionReportNote, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteResponse{
			Error: &e,
		})
		return
	}

	var editable ReportNoteEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteResponse{
			Error: &e,
		})
		return
	}

	note := models.ReportNote{
		ReportID: report.ID,
		ActorID:  ctx.ActorID,
		Text:     editable.Text,
	}

	err = models.DB.Create(&note).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportNoteResponse{
			Error: &e,
		})
		return
	}

	data := newReportNote(c, note)
	c.JSON(http.StatusCreated, ReportNoteResponse{Data: &data})
}
