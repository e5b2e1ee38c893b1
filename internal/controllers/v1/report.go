package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RegisterReportRoutes registers the routes for reports with
// the RouterGroup that is passed.
func RegisterReportRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsReports)
		r.GET("", GetReports)
		r.POST("", CreateReports)
	}

	// Report with ID
	{
		r.OPTIONS("/:id", OptionsReportDetail)
		r.GET("/:id", GetReport)
		r.PATCH("/:id", UpdateReport)
		r.DELETE("/:id", DeleteReport)
	}

	// State transitions
	{
		r.OPTIONS("/:id/submit", OptionsReportTransition)
		r.POST("/:id/submit", SubmitReport)
		r.OPTIONS("/:id/approve", OptionsReportTransition)
		r.POST("/:id/approve", ApproveReport)
		r.OPTIONS("/:id/reject", OptionsReportTransition)
		r.POST("/:id/reject", RejectReport)
		r.OPTIONS("/:id/request-correction", OptionsReportTransition)
		r.POST("/:id/request-correction", RequestReportCorrection)
		r.OPTIONS("/:id/process", OptionsReportTransition)
		r.POST("/:id/process", ProcessReport)
		r.OPTIONS("/:id/reopen", OptionsReportTransition)
		r.POST("/:id/reopen", ReopenReport)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Reports
// @Success		204
// @Router			/v1/reports [options]
func OptionsReports(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Reports
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id} [options]
func OptionsReportDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.Report{})
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Reports
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id}/submit [options]
func OptionsReportTransition(c *gin.Context) {
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

	httputil.OptionsPost(c)
}

// @Summary		Get reports
// @Description	Returns a list of reports the actor is allowed to see
// @Tags			Reports
// @Produce		json
// @Success		200	{object}	ReportListResponse
// @Failure		400	{object}	ReportListResponse
// @Failure		403	{object}	ReportListResponse
// @Failure		500	{object}	ReportListResponse
// @Router			/v1/reports [get]
// @Param			church	query	string	false	"Filter by church ID"
// @Param			year	query	int		false	"Filter by year of the reporting period"
// @Param			month	query	int		false	"Filter by month of the reporting period"
// @Param			state	query	string	false	"Filter by report state"
// @Param			offset	query	uint	false	"The offset of the first Report returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of Reports to return. Defaults to 50."
func GetReports(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var filter ReportQueryFilter
	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ReportListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields set in the filter
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	scope, err := authz.ScopeFor(ctx, authz.ActionReportRead)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportListResponse{
			Error: &e,
		})
		return
	}

	model := filter.model()

	q := models.DB.Order("reports.year DESC, reports.month DESC, datetime(reports.created_at) DESC").Where(&model, queryFields...)

	// Actors that only see their own church get the list narrowed down. An
	// actor without a church sees an empty list, not an error.
	if scope == authz.ScopeOwn {
		if ctx.ChurchID == nil {
			c.JSON(http.StatusOK, ReportListResponse{
				Data:       make([]Report, 0),
				Pagination: &Pagination{Limit: 50},
			})
			return
		}

		q = q.Where("reports.church_id = ?", *ctx.ChurchID)
	}

	if filter.State != "" {
		if !slices.Contains(reportStates, filter.State) {
			s := errReportStateFilter.Error()
			c.JSON(http.StatusBadRequest, ReportListResponse{
				Error: &s,
			})
			return
		}

		q = q.Where("reports.state = ?", filter.State)
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 reports and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var reports []models.Report
	err = q.Find(&reports).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportListResponse{
			Error: &e,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Report, 0)
	for _, report := range reports {
		data = append(data, newReport(c, report))
	}

	c.JSON(http.StatusOK, ReportListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// reportStates are the valid values for the state filter.
var reportStates = []models.ReportState{
	models.ReportStatePending,
	models.ReportStateInReview,
	models.ReportStateApproved,
	models.ReportStateRejected,
	models.ReportStateCorrection,
	models.ReportStateProcessed,
}

// @Summary		Create reports
// @Description	Creates reports from the list of submitted report data. The response code is the highest response code number that a single report creation would have caused. If it is not equal to 201, at least one report has an error.
// @Tags			Reports
// @Produce		json
// @Success		201			{object}	ReportCreateResponse
// @Failure		400			{object}	ReportCreateResponse
// @Failure		403			{object}	ReportCreateResponse
// @Failure		404			{object}	ReportCreateResponse
// @Failure		409			{object}	ReportCreateResponse
// @Failure		500			{object}	ReportCreateResponse
// @Param			reports		body		[]ReportEditable	true	"Reports"
// @Param			overwrite	query		bool				false	"Replace the amounts of an existing editable report for the same church and period instead of failing"
// @Router			/v1/reports [post]
func CreateReports(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var editables []ReportEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportCreateResponse{
			Error: &e,
		})
		return
	}

	overwrite := c.Query("overwrite") == "true"

	// The final http status. Will be modified when errors occur
	httpStatus := http.StatusCreated
	r := ReportCreateResponse{}

	for _, editable := range editables {
		report, err := createReport(ctx, editable, overwrite)
		// Append the error
		if err != nil {
			httpStatus = r.appendError(err, httpStatus)
			continue
		}

		data := newReport(c, report)
		r.Data = append(r.Data, ReportResponse{Data: &data})
	}

	c.JSON(httpStatus, r)
}

// createReport writes a single report. When overwrite is set and an editable
// report for the same church and period exists, its amounts are replaced
// instead of the request failing. The carry forward of the stored report is
// kept since it chains from the previous period.
func createReport(ctx authz.Context, editable ReportEditable, overwrite bool) (models.Report, error) {
	if err := authz.Authorize(ctx, authz.ActionReportCreate, authz.Resource{ChurchID: &editable.ChurchID}); err != nil {
		return models.Report{}, err
	}

	var existing models.Report
	err := models.DB.Where("church_id = ? AND year = ? AND month = ?", editable.ChurchID, editable.Year, editable.Month).First(&existing).Error
	if err == nil {
		if !overwrite {
			return models.Report{}, models.ErrReportExists
		}

		if existing.State == models.ReportStateProcessed {
			return models.Report{}, models.ErrReportProcessed
		}

		if !existing.Editable() {
			return models.Report{}, fmt.Errorf("%w: %q reports can not be overwritten", models.ErrReportState, existing.State)
		}

		if err := authz.Authorize(ctx, authz.ActionReportUpdate, authz.Resource{ChurchID: &existing.ChurchID}); err != nil {
			return models.Report{}, err
		}

		existing.ReportAmounts = editable.ReportAmounts
		existing.DepositReceipt = editable.DepositReceipt
		existing.DepositDate = editable.DepositDate
		existing.DepositAmount = editable.DepositAmount

		if err := existing.Save(models.DB, existing.Version); err != nil {
			return models.Report{}, err
		}

		return existing, nil
	}

	if !errors.Is(err, models.ErrResourceNotFound) {
		return models.Report{}, err
	}

	report := editable.model()
	if err := models.DB.Create(&report).Error; err != nil {
		return models.Report{}, err
	}

	return report, nil
}

// @Summary		Get report
// @Description	Returns a specific report
// @Tags			Reports
// @Produce		json
// @Success		200	{object}	ReportResponse
// @Failure		400	{object}	ReportResponse
// @Failure		403	{object}	ReportResponse
// @Failure		404	{object}	ReportResponse
// @Failure		500	{object}	ReportResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id} [get]
func GetReport(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionReportRead, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	data := newReport(c, report)
	c.JSON(http.StatusOK, ReportResponse{Data: &data})
}

// @Summary		Update report
// @Description	Updates the amounts of an existing report. Only values to be updated need to be specified, the version the change is based on is required. The church and period can not be changed.
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			report	body		ReportEditable	true	"Report"
// @Router			/v1/reports/{id} [patch]
func UpdateReport(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionReportUpdate, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if report.State == models.ReportStateProcessed {
		e := models.ErrReportProcessed.Error()
		c.JSON(status(models.ErrReportProcessed), ReportResponse{
			Error: &e,
		})
		return
	}

	if !report.Editable() {
		err := fmt.Errorf("%w: %q reports can not be changed", models.ErrReportState, report.State)
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	// Bind the patch on top of the stored values so that fields missing
	// from the request body keep their current value. The version is not
	// prefilled, it has to come from the request.
	update := ReportEditable{
		ChurchID:       report.ChurchID,
		Year:           report.Year,
		Month:          report.Month,
		ReportAmounts:  report.ReportAmounts,
		CarryForward:   report.CarryForward,
		DepositReceipt: report.DepositReceipt,
		DepositDate:    report.DepositDate,
		DepositAmount:  report.DepositAmount,
	}
	err = httputil.BindData(c, &update)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if update.Version == 0 {
		e := errVersionRequired.Error()
		c.JSON(http.StatusBadRequest, ReportResponse{
			Error: &e,
		})
		return
	}

	if update.ChurchID != report.ChurchID || update.Year != report.Year || update.Month != report.Month {
		e := errReportIdentityImmutable.Error()
		c.JSON(http.StatusBadRequest, ReportResponse{
			Error: &e,
		})
		return
	}

	report.ReportAmounts = update.ReportAmounts
	report.CarryForward = update.CarryForward
	report.DepositReceipt = update.DepositReceipt
	report.DepositDate = update.DepositDate
	report.DepositAmount = update.DepositAmount

	err = report.Save(models.DB, update.Version)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	data := newReport(c, report)
	c.JSON(http.StatusOK, ReportResponse{Data: &data})
}

// reportDeletableStates are the states a report may be deleted in. Reports
// under review or beyond stay, processed ones are referenced by the ledger.
var reportDeletableStates = []models.ReportState{
	models.ReportStatePending,
	models.ReportStateCorrection,
	models.ReportStateRejected,
}

// @Summary		Delete report
// @Description	Deletes a report. Only reports that have not been approved or processed can be deleted.
// @Tags			Reports
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		403	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		409	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/reports/{id} [delete]
func DeleteReport(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionReportDelete, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	if report.State == models.ReportStateProcessed {
		c.JSON(status(models.ErrReportProcessed), httpError{
			Error: models.ErrReportProcessed.Error(),
		})
		return
	}

	if !slices.Contains(reportDeletableStates, report.State) {
		err := fmt.Errorf("%w: %q reports can not be deleted", models.ErrReportState, report.State)
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.Delete(&report).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// transitionReport loads the report, checks the permission and applies the
// transition with the version from the request body.
func transitionReport(c *gin.Context, action authz.Action, transition func(r *models.Report, db *gorm.DB, expected int) error) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	var report models.Report
	err = models.DB.First(&report, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, action, authz.Resource{ChurchID: &report.ChurchID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	var request ReportTransitionRequest
	err = httputil.BindData(c, &request)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	if request.Version == 0 {
		e := errVersionRequired.Error()
		c.JSON(http.StatusBadRequest, ReportResponse{
			Error: &e,
		})
		return
	}

	err = transition(&report, models.DB, request.Version)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReportResponse{
			Error: &e,
		})
		return
	}

	data := newReport(c, report)
	c.JSON(http.StatusOK, ReportResponse{Data: &data})
}

// @Summary		Submit report
// @Description	Hands the report over for review. A report in correction goes back to pending for a fresh review.
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/submit [post]
func SubmitReport(c *gin.Context) {
	transitionReport(c, authz.ActionReportSubmit, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.Submit(db, expected)
	})
}

// @Summary		Approve report
// @Description	Accepts a report under review
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/approve [post]
func ApproveReport(c *gin.Context) {
	transitionReport(c, authz.ActionReportApprove, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.Approve(db, expected)
	})
}

// @Summary		Reject report
// @Description	Turns down a report under review
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/reject [post]
func RejectReport(c *gin.Context) {
	transitionReport(c, authz.ActionReportReject, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.Reject(db, expected)
	})
}

// @Summary		Request report correction
// @Description	Returns a report under review to the church for fixes
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/request-correction [post]
func RequestReportCorrection(c *gin.Context) {
	transitionReport(c, authz.ActionReportRequestCorrection, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.RequestCorrection(db, expected)
	})
}

// @Summary		Process report
// @Description	Posts the national fund shares of an approved report to the funds and marks the report as processed. Processing an already processed report changes nothing.
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/process [post]
func ProcessReport(c *gin.Context) {
	transitionReport(c, authz.ActionReportProcess, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.Process(db, expected)
	})
}

// @Summary		Reopen report
// @Description	Returns a rejected report to pending
// @Tags			Reports
// @Accept			json
// @Produce		json
// @Success		200		{object}	ReportResponse
// @Failure		400		{object}	ReportResponse
// @Failure		403		{object}	ReportResponse
// @Failure		404		{object}	ReportResponse
// @Failure		409		{object}	ReportResponse
// @Failure		500		{object}	ReportResponse
// @Param			id		path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		ReportTransitionRequest	true	"Transition"
// @Router			/v1/reports/{id}/reopen [post]
func ReopenReport(c *gin.Context) {
	transitionReport(c, authz.ActionReportReopen, func(r *models.Report, db *gorm.DB, expected int) error {
		return r.Reopen(db, expected)
	})
}
