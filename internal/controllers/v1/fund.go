package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterFundRoutes registers the routes for funds with
// the RouterGroup that is passed.
func RegisterFundRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsFunds)
		r.GET("", GetFunds)
		r.POST("", CreateFunds)
	}

	// Fund with ID
	{
		r.OPTIONS("/:id", OptionsFundDetail)
		r.GET("/:id", GetFund)
		r.PATCH("/:id", UpdateFund)
		r.DELETE("/:id", DeleteFund)
	}

	// Balance of the fund
	{
		r.OPTIONS("/:id/balance", OptionsFundBalance)
		r.GET("/:id/balance", GetFundBalance)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Funds
// @Success		204
// @Router			/v1/funds [options]
func OptionsFunds(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Funds
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/funds/{id} [options]
func OptionsFundDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.Fund{})
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Funds
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/funds/{id}/balance [options]
func OptionsFundBalance(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Fund{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGet(c)
}

// @Summary		Get funds
// @Description	Returns a list of funds the actor is allowed to see
// @Tags			Funds
// @Produce		json
// @Success		200	{object}	FundListResponse
// @Failure		400	{object}	FundListResponse
// @Failure		403	{object}	FundListResponse
// @Failure		500	{object}	FundListResponse
// @Router			/v1/funds [get]
// @Param			name	query	string	false	"Filter by name, matches partially"
// @Param			active	query	bool	false	"Is the fund active?"
// @Param			offset	query	uint	false	"The offset of the first Fund returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of Funds to return. Defaults to 50."
func GetFunds(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var filter FundQueryFilter
	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, FundListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields set in the filter
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	scope, err := authz.ScopeFor(ctx, authz.ActionFundRead)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundListResponse{
			Error: &e,
		})
		return
	}

	model := filter.model()

	q := models.DB.Order("funds.name ASC").Where(&model, queryFields...)

	// Fund directors only see the funds they are assigned to. A director
	// without funds sees an empty list, not an error.
	if scope == authz.ScopeAssigned {
		if len(ctx.FundIDs) == 0 {
			c.JSON(http.StatusOK, FundListResponse{
				Data:       make([]Fund, 0),
				Pagination: &Pagination{Limit: 50},
			})
			return
		}

		q = q.Where("funds.id IN ?", ctx.FundIDs)
	}

	if filter.Name != "" {
		q = q.Where("funds.name LIKE ?", fmt.Sprintf("%%%s%%", filter.Name))
	} else if slices.Contains(setFields, "Name") {
		q = q.Where("funds.name = ''")
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 funds and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var funds []models.Fund
	err = q.Find(&funds).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundListResponse{
			Error: &e,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Fund, 0)
	for _, fund := range funds {
		data = append(data, newFund(c, fund))
	}

	c.JSON(http.StatusOK, FundListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Create funds
// @Description	Creates funds from the list of submitted fund data. The response code is the highest response code number that a single fund creation would have caused. If it is not equal to 201, at least one fund has an error.
// @Tags			Funds
// @Produce		json
// @Success		201		{object}	FundCreateResponse
// @Failure		400		{object}	FundCreateResponse
// @Failure		403		{object}	FundCreateResponse
// @Failure		500		{object}	FundCreateResponse
// @Param			funds	body		[]FundEditable	true	"Funds"
// @Router			/v1/funds [post]
func CreateFunds(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	// Creating funds is not tied to a single resource, so the check happens
	// once before anything is written.
	if err := authz.Authorize(ctx, authz.ActionFundCreate, authz.Resource{}); err != nil {
		e := err.Error()
		c.JSON(status(err), FundCreateResponse{
			Error: &e,
		})
		return
	}

	var editables []FundEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := FundCreateResponse{}

	for _, editable := range editables {
		fund := editable.model()

		// New funds always start active
		fund.Active = true

		err := models.DB.Create(&fund).Error
		// Append the error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newFund(c, fund)
		r.Data = append(r.Data, FundResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get fund
// @Description	Returns a specific fund
// @Tags			Funds
// @Produce		json
// @Success		200	{object}	FundResponse
// @Failure		400	{object}	FundResponse
// @Failure		403	{object}	FundResponse
// @Failure		404	{object}	FundResponse
// @Failure		500	{object}	FundResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/funds/{id} [get]
func GetFund(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	var fund models.Fund
	err = models.DB.First(&fund, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionFundRead, authz.Resource{FundID: &fund.ID}); err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	data := newFund(c, fund)
	c.JSON(http.StatusOK, FundResponse{Data: &data})
}

// @Summary		Get fund balance
// @Description	Returns the balance of the fund, derived from the ledger. With asOf set, only movements up to and including that time count.
// @Tags			Funds
// @Produce		json
// @Success		200		{object}	FundBalanceResponse
// @Failure		400		{object}	FundBalanceResponse
// @Failure		403		{object}	FundBalanceResponse
// @Failure		404		{object}	FundBalanceResponse
// @Failure		500		{object}	FundBalanceResponse
// @Param			id		path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			asOf	query		string	false	"Cutoff as RFC3339 timestamp. Defaults to all movements."
// @Router			/v1/funds/{id}/balance [get]
func GetFundBalance(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundBalanceResponse{
			Error: &e,
		})
		return
	}

	var fund models.Fund
	err = models.DB.First(&fund, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundBalanceResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionFundRead, authz.Resource{FundID: &fund.ID}); err != nil {
		e := err.Error()
		c.JSON(status(err), FundBalanceResponse{
			Error: &e,
		})
		return
	}

	asOf, err := httputil.DateFromString(c.Query("asOf"))
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundBalanceResponse{
			Error: &e,
		})
		return
	}

	balance, err := fund.Balance(models.DB, asOf)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundBalanceResponse{
			Error: &e,
		})
		return
	}

	data := FundBalance{Balance: balance}
	if !asOf.IsZero() {
		data.AsOf = &asOf
	}

	c.JSON(http.StatusOK, FundBalanceResponse{Data: &data})
}

// @Summary		Update fund
// @Description	Updates an existing fund. Only values to be updated need to be specified.
// @Tags			Funds
// @Accept			json
// @Produce		json
// @Success		200		{object}	FundResponse
// @Failure		400		{object}	FundResponse
// @Failure		403		{object}	FundResponse
// @Failure		404		{object}	FundResponse
// @Failure		500		{object}	FundResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			fund	body		FundEditable	true	"Fund"
// @Router			/v1/funds/{id} [patch]
func UpdateFund(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	var fund models.Fund
	err = models.DB.First(&fund, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionFundUpdate, authz.Resource{FundID: &fund.ID}); err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	// Bind the patch on top of the stored values so that fields missing
	// from the request body keep their current value and the hooks always
	// validate the full resource.
	update := FundEditable{
		Name:           fund.Name,
		Description:    fund.Description,
		AllowsNegative: fund.AllowsNegative,
		Active:         fund.Active,
	}
	err = httputil.BindData(c, &update)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	fund.Name = update.Name
	fund.Description = update.Description
	fund.AllowsNegative = update.AllowsNegative
	fund.Active = update.Active

	err = models.DB.Select("*").Save(&fund).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FundResponse{
			Error: &e,
		})
		return
	}

	data := newFund(c, fund)
	c.JSON(http.StatusOK, FundResponse{Data: &data})
}

// @Summary		Deactivate fund
// @Description	Deactivates a fund. Its movement history and balance stay readable, new movements are rejected.
// @Tags			Funds
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		403	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/funds/{id} [delete]
func DeleteFund(c *gin.Context) {
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

	var fund models.Fund
	err = models.DB.First(&fund, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionFundDeactivate, authz.Resource{FundID: &fund.ID}); err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = fund.Deactivate(models.DB)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
