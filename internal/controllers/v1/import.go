package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/importer"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

type ImportResponse struct {
	Links ImportLinks `json:"links"` // Links to the import endpoints
}

type ImportLinks struct {
	Churches     string `json:"churches" example:"https://example.com/api/v1/import/churches"`         // URL of the church import endpoint
	Reports      string `json:"reports" example:"https://example.com/api/v1/import/reports"`           // URL of the report import endpoint
	Transactions string `json:"transactions" example:"https://example.com/api/v1/import/transactions"` // URL of the cash book import endpoint
}

type ImportResultResponse struct {
	Error *string          `json:"error" example:"you are not allowed to perform this action"` // The error, if any occurred
	Data  *importer.Result `json:"data"`                                                       // The outcome of the import batch
}

// RegisterImportRoutes registers the routes for imports.
func RegisterImportRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsImport)
		r.GET("", GetImport)

		r.OPTIONS("/churches", OptionsImportChurches)
		r.POST("/churches", ImportChurches)

		r.OPTIONS("/reports", OptionsImportReports)
		r.POST("/reports", ImportReports)

		r.OPTIONS("/transactions", OptionsImportTransactions)
		r.POST("/transactions", ImportTransactions)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs.
// @Tags			Import
// @Success		204
// @Router			/v1/import [options]
func OptionsImport(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Import API overview
// @Description	Returns general information about the import endpoints
// @Tags			Import
// @Success		200	{object}	ImportResponse
// @Router			/v1/import [get]
func GetImport(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, ImportResponse{
		Links: ImportLinks{
			Churches:     url + "/v1/import/churches",
			Reports:      url + "/v1/import/reports",
			Transactions: url + "/v1/import/transactions",
		},
	})
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/import/churches [options]
func OptionsImportChurches(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/import/reports [options]
func OptionsImportReports(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Import
// @Success		204
// @Router			/v1/import/transactions [options]
func OptionsImportTransactions(c *gin.Context) {
	httputil.OptionsPost(c)
}

// runImport authorizes the actor, binds the rows and runs the batch. A batch
// that fails validation returns 400 with the full result so the caller can
// see every row error at once.
func runImport[R any](c *gin.Context, run func([]R) (importer.Result, error)) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	// Imports span many churches, so the check happens once before
	// anything is read.
	if err := authz.Authorize(ctx, authz.ActionImport, authz.Resource{}); err != nil {
		e := err.Error()
		c.JSON(status(err), ImportResultResponse{
			Error: &e,
		})
		return
	}

	var rows []R
	if err := httputil.BindData(c, &rows); err != nil {
		e := err.Error()
		c.JSON(status(err), ImportResultResponse{
			Error: &e,
		})
		return
	}

	result, err := run(rows)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ImportResultResponse{
			Error: &e,
		})
		return
	}

	httpStatus := http.StatusOK
	if !result.Ok() {
		httpStatus = http.StatusBadRequest
	}

	c.JSON(httpStatus, ImportResultResponse{Data: &result})
}

// @Summary		Import churches
// @Description	Registers a batch of churches. Churches that already exist are skipped. A single invalid row rejects the whole batch before anything is written.
// @Tags			Import
// @Accept			json
// @Produce		json
// @Success		200			{object}	ImportResultResponse
// @Failure		400			{object}	ImportResultResponse
// @Failure		403			{object}	ImportResultResponse
// @Failure		500			{object}	ImportResultResponse
// @Param			churches	body		[]importer.ChurchRow	true	"Churches"
// @Router			/v1/import/churches [post]
func ImportChurches(c *gin.Context) {
	runImport(c, func(rows []importer.ChurchRow) (importer.Result, error) {
		return importer.Churches(models.DB, rows)
	})
}

// @Summary		Import reports
// @Description	Imports a batch of historical monthly reports. Reports are referenced by church name and period, existing ones are skipped. A single invalid row rejects the whole batch before anything is written.
// @Tags			Import
// @Accept			json
// @Produce		json
// @Success		200		{object}	ImportResultResponse
// @Failure		400		{object}	ImportResultResponse
// @Failure		403		{object}	ImportResultResponse
// @Failure		500		{object}	ImportResultResponse
// @Param			reports	body		[]importer.ReportRow	true	"Reports"
// @Router			/v1/import/reports [post]
func ImportReports(c *gin.Context) {
	runImport(c, func(rows []importer.ReportRow) (importer.Result, error) {
		return importer.Reports(models.DB, rows)
	})
}

// @Summary		Import transactions
// @Description	Imports a batch of cash book rows. Rows already imported are recognized by their hash and skipped. A single invalid row rejects the whole batch before anything is written.
// @Tags			Import
// @Accept			json
// @Produce		json
// @Success		200				{object}	ImportResultResponse
// @Failure		400				{object}	ImportResultResponse
// @Failure		403				{object}	ImportResultResponse
// @Failure		500				{object}	ImportResultResponse
// @Param			transactions	body		[]importer.TransactionRow	true	"Transactions"
// @Router			/v1/import/transactions [post]
func ImportTransactions(c *gin.Context) {
	runImport(c, func(rows []importer.TransactionRow) (importer.Result, error) {
		return importer.Transactions(models.DB, rows)
	})
}
