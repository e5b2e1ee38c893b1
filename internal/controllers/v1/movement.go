package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
	ipu_uuid "github.com/ipupy-tesoreria/backend/internal/uuid"
	"github.com/ryanuber/go-glob"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RegisterMovementRoutes registers the routes for fund movements with
// the RouterGroup that is passed. Movements are append only, so there are no
// update or delete routes.
func RegisterMovementRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsMovements)
		r.GET("", GetMovements)
		r.POST("", CreateMovements)
	}

	// Movement with ID
	{
		r.OPTIONS("/:id", OptionsMovementDetail)
		r.GET("/:id", GetMovement)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Movements
// @Success		204
// @Router			/v1/movements [options]
func OptionsMovements(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Movements
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/movements/{id} [options]
func OptionsMovementDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.FundMovement{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGet(c)
}

// movementTypes are the valid values for the type filter.
var movementTypes = []models.MovementType{
	models.MovementIncoming,
	models.MovementOutgoing,
	models.MovementTransfer,
}

// @Summary		Get movements
// @Description	Returns a list of fund movements the actor is allowed to see
// @Tags			Movements
// @Produce		json
// @Success		200	{object}	MovementListResponse
// @Failure		400	{object}	MovementListResponse
// @Failure		403	{object}	MovementListResponse
// @Failure		500	{object}	MovementListResponse
// @Router			/v1/movements [get]
// @Param			fund		query	string	false	"Filter by ID of the involved fund, regardless of source or destination"
// @Param			source		query	string	false	"Filter by source fund ID"
// @Param			destination	query	string	false	"Filter by destination fund ID"
// @Param			report		query	string	false	"Filter by ID of the report that posted the movement"
// @Param			type		query	string	false	"Filter by movement type"
// @Param			fromDate	query	string	false	"Movements at and after this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided."
// @Param			untilDate	query	string	false	"Movements before and at this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided."
// @Param			concept		query	string	false	"Filter by concept pattern, * matches any characters"
// @Param			forced		query	bool	false	"Was the movement forced past the balance check?"
// @Param			offset		query	uint	false	"The offset of the first Movement returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Movements to return. Defaults to 50."
func GetMovements(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var filter MovementQueryFilter
	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, MovementListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields set in the filter
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	scope, err := authz.ScopeFor(ctx, authz.ActionMovementRead)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementListResponse{
			Error: &e,
		})
		return
	}

	model := filter.model()

	q := models.DB.Order("datetime(fund_movements.date) DESC, datetime(fund_movements.created_at) DESC").Where(&model, queryFields...)

	// Fund directors only see movements that touch the funds they are
	// assigned to. A director without funds sees an empty list, not an
	// error.
	if scope == authz.ScopeAssigned {
		if len(ctx.FundIDs) == 0 {
			c.JSON(http.StatusOK, MovementListResponse{
				Data:       make([]Movement, 0),
				Pagination: &Pagination{Limit: 50},
			})
			return
		}

		q = q.Where("fund_movements.fund_id IN ? OR fund_movements.destination_fund_id IN ?", ctx.FundIDs, ctx.FundIDs)
	}

	if filter.InvolvedFundID != ipu_uuid.Nil {
		q = q.Where(models.DB.Where(&models.FundMovement{
			FundID: filter.InvolvedFundID.UUID,
		}).Or("fund_movements.destination_fund_id = ?", filter.InvolvedFundID.UUID))
	}

	if filter.Type != "" {
		if !slices.Contains(movementTypes, filter.Type) {
			s := models.ErrMovementType.Error()
			c.JSON(http.StatusBadRequest, MovementListResponse{
				Error: &s,
			})
			return
		}

		q = q.Where("fund_movements.type = ?", filter.Type)
	}

	if !filter.FromDate.IsZero() {
		q = q.Where("fund_movements.date >= date(?)", time.Date(filter.FromDate.Year(), filter.FromDate.Month(), filter.FromDate.Day(), 0, 0, 0, 0, time.UTC))
	}

	if !filter.UntilDate.IsZero() {
		q = q.Where("fund_movements.date < date(?)", time.Date(filter.UntilDate.Year(), filter.UntilDate.Month(), filter.UntilDate.Day()+1, 0, 0, 0, 0, time.UTC))
	}

	// Default to 50 movements and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}

	// Concept patterns are matched in the application, so matching rows
	// are counted and paginated after the query.
	if filter.Concept != "" {
		var all []models.FundMovement
		err = q.Find(&all).Error
		if err != nil {
			e := err.Error()
			c.JSON(status(err), MovementListResponse{
				Error: &e,
			})
			return
		}

		matched := make([]models.FundMovement, 0)
		for _, movement := range all {
			if glob.Glob(filter.Concept, movement.Concept) {
				matched = append(matched, movement)
			}
		}

		low := int(filter.Offset)
		if low > len(matched) {
			low = len(matched)
		}

		high := len(matched)
		if limit >= 0 && low+limit < high {
			high = low + limit
		}

		data := make([]Movement, 0)
		for _, movement := range matched[low:high] {
			data = append(data, newMovement(c, movement))
		}

		c.JSON(http.StatusOK, MovementListResponse{
			Data: data,
			Pagination: &Pagination{
				Count:  len(data),
				Total:  int64(len(matched)),
				Offset: filter.Offset,
				Limit:  limit,
			},
		})
		return
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))
	q = q.Limit(limit)

	var movements []models.FundMovement
	err = q.Find(&movements).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementListResponse{
			Error: &e,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Movement, 0)
	for _, movement := range movements {
		data = append(data, newMovement(c, movement))
	}

	c.JSON(http.StatusOK, MovementListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Create movements
// @Description	Posts movements to the ledger from the list of submitted movement data. The batch is atomic, either all movements are posted or none. Transfers are created through the transfers endpoint. With an Idempotency-Key header, retries of a successful request return the movements already posted instead of posting again.
// @Tags			Movements
// @Accept			json
// @Produce		json
// @Success		201			{object}	MovementCreateResponse
// @Failure		400			{object}	MovementCreateResponse
// @Failure		403			{object}	MovementCreateResponse
// @Failure		404			{object}	MovementCreateResponse
// @Failure		409			{object}	MovementCreateResponse
// @Failure		422			{object}	MovementCreateResponse
// @Failure		500			{object}	MovementCreateResponse
// @Param			movements		body	[]MovementEditable	true	"Movements"
// @Param			Idempotency-Key	header	string				false	"Key that makes retries of this request safe"
// @Router			/v1/movements [post]
func CreateMovements(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	// Reject actors that can not create movements at all before touching
	// the idempotency record.
	if _, err := authz.ScopeFor(ctx, authz.ActionMovementCreate); err != nil {
		e := err.Error()
		c.JSON(status(err), MovementCreateResponse{
			Error: &e,
		})
		return
	}

	var editables []MovementEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementCreateResponse{
			Error: &e,
		})
		return
	}

	key := c.GetHeader("Idempotency-Key")

	var record models.IdempotencyKey
	if key != "" {
		var replay bool
		record, replay, err = models.StartIdempotency(models.DB, key, "movements")
		if err != nil {
			e := err.Error()
			c.JSON(status(err), MovementCreateResponse{
				Error: &e,
			})
			return
		}

		if replay {
			replayMovements(c, record)
			return
		}
	}

	var movements []models.FundMovement
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for i, editable := range editables {
			if editable.Type == models.MovementTransfer {
				return fmt.Errorf("movement %d: %w", i+1, errMovementUseTransfer)
			}

			if err := authz.Authorize(ctx, authz.ActionMovementCreate, authz.Resource{FundID: &editable.FundID}); err != nil {
				return fmt.Errorf("movement %d: %w", i+1, err)
			}

			// Forcing a movement past the balance check needs its own
			// permission on top
			if editable.Forced {
				if err := authz.Authorize(ctx, authz.ActionMovementOverride, authz.Resource{FundID: &editable.FundID}); err != nil {
					return fmt.Errorf("movement %d: %w", i+1, err)
				}
			}

			movement := editable.model()
			if err := movement.Post(tx); err != nil {
				return fmt.Errorf("movement %d: %w", i+1, err)
			}

			movements = append(movements, movement)
		}

		// Success of the request and of the idempotency record commit
		// together, a rollback keeps the key claimable.
		if key != "" {
			ids := make([]uuid.UUID, 0, len(movements))
			for _, movement := range movements {
				ids = append(ids, movement.ID)
			}

			return record.Succeed(tx, ids...)
		}

		return nil
	})
	if err != nil {
		// Release the key so the client can retry
		if key != "" {
			_ = record.Fail(models.DB)
		}

		e := err.Error()
		c.JSON(status(err), MovementCreateResponse{
			Error: &e,
		})
		return
	}

	r := MovementCreateResponse{}
	for _, movement := range movements {
		data := newMovement(c, movement)
		r.Data = append(r.Data, MovementResponse{Data: &data})
	}

	c.JSON(http.StatusCreated, r)
}

// replayMovements answers a repeated request with the movements its first
// run posted, in the order of the original request.
func replayMovements(c *gin.Context, record models.IdempotencyKey) {
	ids, err := record.ResourceIDs()
	if err != nil {
		e := models.ErrGeneral.Error()
		c.JSON(http.StatusInternalServerError, MovementCreateResponse{
			Error: &e,
		})
		return
	}

	var movements []models.FundMovement
	err = models.DB.Where("id IN ?", ids).Find(&movements).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementCreateResponse{
			Error: &e,
		})
		return
	}

	byID := make(map[uuid.UUID]models.FundMovement, len(movements))
	for _, movement := range movements {
		byID[movement.ID] = movement
	}

	r := MovementCreateResponse{}
	for _, id := range ids {
		movement, ok := byID[id]
		if !ok {
			continue
		}

		data := newMovement(c, movement)
		r.Data = append(r.Data, MovementResponse{Data: &data})
	}

	c.JSON(http.StatusCreated, r)
}

// @Summary		Get movement
// @Description	Returns a specific fund movement
// @Tags			Movements
// @Produce		json
// @Success		200	{object}	MovementResponse
// @Failure		400	{object}	MovementResponse
// @Failure		403	{object}	MovementResponse
// @Failure		404	{object}	MovementResponse
// @Failure		500	{object}	MovementResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/movements/{id} [get]
func GetMovement(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	var movement models.FundMovement
	err = models.DB.First(&movement, uri.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	// Directors assigned to the destination fund of a transfer may see the
	// movement as well
	err = authz.Authorize(ctx, authz.ActionMovementRead, authz.Resource{FundID: &movement.FundID})
	if err != nil && movement.DestinationFundID != nil {
		err = authz.Authorize(ctx, authz.ActionMovementRead, authz.Resource{FundID: movement.DestinationFundID})
	}
	if err != nil {
		e := err.Error()
		c.JSON(status(err), MovementResponse{
			Error: &e,
		})
		return
	}

	data := newMovement(c, movement)
	c.JSON(http.StatusOK, MovementResponse{Data: &data})
}
