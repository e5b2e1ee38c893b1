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

// RegisterChurchRoutes registers the routes for churches with
// the RouterGroup that is passed.
func RegisterChurchRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsChurches)
		r.GET("", GetChurches)
		r.POST("", CreateChurches)
	}

	// Church with ID
	{
		r.OPTIONS("/:id", OptionsChurchDetail)
		r.GET("/:id", GetChurch)
		r.PATCH("/:id", UpdateChurch)
		r.DELETE("/:id", DeleteChurch)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Churches
// @Success		204
// @Router			/v1/churches [options]
func OptionsChurches(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Churches
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/churches/{id} [options]
func OptionsChurchDetail(c *gin.Context) {
	resourceOptionsDetail(c, models.Church{})
}

// @Summary		Get churches
// @Description	Returns a list of churches the actor is allowed to see
// @Tags			Churches
// @Produce		json
// @Success		200	{object}	ChurchListResponse
// @Failure		400	{object}	ChurchListResponse
// @Failure		403	{object}	ChurchListResponse
// @Failure		500	{object}	ChurchListResponse
// @Router			/v1/churches [get]
// @Param			name	query	string	false	"Filter by name, matches partially"
// @Param			city	query	string	false	"Filter by city, matches partially"
// @Param			pastor	query	string	false	"Filter by pastor name, matches partially"
// @Param			active	query	bool	false	"Is the church active?"
// @Param			offset	query	uint	false	"The offset of the first Church returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of Churches to return. Defaults to 50."
func GetChurches(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var filter ChurchQueryFilter
	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ChurchListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields set in the filter
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	scope, err := authz.ScopeFor(ctx, authz.ActionChurchRead)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchListResponse{
			Error: &e,
		})
		return
	}

	model := filter.model()

	q := models.DB.Order("churches.name ASC").Where(&model, queryFields...)

	// Actors that only see their own church get the list narrowed down. An
	// actor without a church sees an empty list, not an error.
	if scope == authz.ScopeOwn {
		if ctx.ChurchID == nil {
			c.JSON(http.StatusOK, ChurchListResponse{
				Data:       make([]Church, 0),
				Pagination: &Pagination{Limit: 50},
			})
			return
		}

		q = q.Where("churches.id = ?", *ctx.ChurchID)
	}

	if filter.Name != "" {
		q = q.Where("churches.name LIKE ?", fmt.Sprintf("%%%s%%", filter.Name))
	} else if slices.Contains(setFields, "Name") {
		q = q.Where("churches.name = ''")
	}

	if filter.City != "" {
		q = q.Where("churches.city LIKE ?", fmt.Sprintf("%%%s%%", filter.City))
	} else if slices.Contains(setFields, "City") {
		q = q.Where("churches.city = ''")
	}

	if filter.Pastor != "" {
		q = q.Where("churches.pastor LIKE ?", fmt.Sprintf("%%%s%%", filter.Pastor))
	} else if slices.Contains(setFields, "Pastor") {
		q = q.Where("churches.pastor = ''")
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 churches and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var churches []models.Church
	err = q.Find(&churches).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchListResponse{
			Error: &e,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Church, 0)
	for _, church := range churches {
		data = append(data, newChurch(c, church))
	}

	c.JSON(http.StatusOK, ChurchListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Create churches
// @Description	Creates churches from the list of submitted church data. The response code is the highest response code number that a single church creation would have caused. If it is not equal to 201, at least one church has an error.
// @Tags			Churches
// @Produce		json
// @Success		201			{object}	ChurchCreateResponse
// @Failure		400			{object}	ChurchCreateResponse
// @Failure		403			{object}	ChurchCreateResponse
// @Failure		500			{object}	ChurchCreateResponse
// @Param			churches	body		[]ChurchEditable	true	"Churches"
// @Router			/v1/churches [post]
func CreateChurches(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	// Creating churches is not tied to a single resource, so the check
	// happens once before anything is written.
	if err := authz.Authorize(ctx, authz.ActionChurchCreate, authz.Resource{}); err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchCreateResponse{
			Error: &e,
		})
		return
	}

	var editables []ChurchEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := ChurchCreateResponse{}

	for _, editable := range editables {
		church := editable.model()

		// New churches always start active
		church.Active = true

		err := models.DB.Create(&church).Error
		// Append the error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newChurch(c, church)
		r.Data = append(r.Data, ChurchResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get church
// @Description	Returns a specific church
// @Tags			Churches
// @Produce		json
// @Success		200	{object}	ChurchResponse
// @Failure		400	{object}	ChurchResponse
// @Failure		403	{object}	ChurchResponse
// @Failure		404	{object}	ChurchResponse
// @Failure		500	{object}	ChurchResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/churches/{id} [get]
func GetChurch(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	var church models.Church
	err = models.DB.First(&church, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionChurchRead, authz.Resource{ChurchID: &church.ID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	data := newChurch(c, church)
	c.JSON(http.StatusOK, ChurchResponse{Data: &data})
}

// @Summary		Update church
// @Description	Updates an existing church. Only values to be updated need to be specified.
// @Tags			Churches
// @Accept			json
// @Produce		json
// @Success		200		{object}	ChurchResponse
// @Failure		400		{object}	ChurchResponse
// @Failure		403		{object}	ChurchResponse
// @Failure		404		{object}	ChurchResponse
// @Failure		500		{object}	ChurchResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			church	body		ChurchEditable	true	"Church"
// @Router			/v1/churches/{id} [patch]
func UpdateChurch(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	var church models.Church
	err = models.DB.First(&church, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionChurchUpdate, authz.Resource{ChurchID: &church.ID}); err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	// Bind the patch on top of the stored values so that fields missing
	// from the request body keep their current value and the hooks always
	// validate the full resource.
	update := ChurchEditable{
		Name:   church.Name,
		City:   church.City,
		Pastor: church.Pastor,
		Phone:  church.Phone,
		Active: church.Active,
	}
	err = httputil.BindData(c, &update)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	church.Name = update.Name
	church.City = update.City
	church.Pastor = update.Pastor
	church.Phone = update.Phone
	church.Active = update.Active

	err = models.DB.Select("*").Save(&church).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ChurchResponse{
			Error: &e,
		})
		return
	}

	data := newChurch(c, church)
	c.JSON(http.StatusOK, ChurchResponse{Data: &data})
}

// @Summary		Deactivate church
// @Description	Deactivates a church. Its reports and transactions stay readable, new ones are rejected.
// @Tags			Churches
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		403	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/churches/{id} [delete]
func DeleteChurch(c *gin.Context) {
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

	var church models.Church
	err = models.DB.First(&church, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	if err := authz.Authorize(ctx, authz.ActionChurchDeactivate, authz.Resource{ChurchID: &church.ID}); err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = church.Deactivate(models.DB)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
