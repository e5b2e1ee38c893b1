package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/config"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
	"github.com/ipupy-tesoreria/backend/internal/reconciliation"
	"github.com/ipupy-tesoreria/backend/internal/types"
	ipu_uuid "github.com/ipupy-tesoreria/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

type ReconciliationQueryFilter struct {
	Year      int           `form:"year"`      // Year of the period to reconcile
	Month     int           `form:"month"`     // Month of the period to reconcile
	ChurchID  ipu_uuid.UUID `form:"church"`    // Only reconcile this church
	Tolerance string        `form:"tolerance"` // Acceptable absolute difference between the two sides. Defaults to the server wide setting.
}

type ReconciliationResponse struct {
	Error *string                  `json:"error" example:"the year and month query parameters must be set"` // The error, if any occurred
	Data  []reconciliation.Finding `json:"data"`                                                            // One finding per church that has anything to reconcile
}

// RegisterReconciliationRoutes registers the routes for reconciliation with
// the RouterGroup that is passed.
func RegisterReconciliationRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsReconciliation)
	r.GET("", GetReconciliation)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Reconciliation
// @Success		204
// @Router			/v1/reconciliation [options]
func OptionsReconciliation(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Reconcile a period
// @Description	Compares the derived totals of the monthly reports against the cash book each church keeps and returns one finding per church. Nothing is written, the endpoint is read only.
// @Tags			Reconciliation
// @Produce		json
// @Success		200	{object}	ReconciliationResponse
// @Failure		400	{object}	ReconciliationResponse
// @Failure		403	{object}	ReconciliationResponse
// @Failure		404	{object}	ReconciliationResponse
// @Failure		500	{object}	ReconciliationResponse
// @Router			/v1/reconciliation [get]
// @Param			year		query	int		true	"Year of the period"
// @Param			month		query	int		true	"Month of the period"
// @Param			church		query	string	false	"Only reconcile this church"
// @Param			tolerance	query	string	false	"Acceptable absolute difference between the two sides. Defaults to the server wide setting."
func GetReconciliation(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	var filter ReconciliationQueryFilter
	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ReconciliationResponse{
			Error: &s,
		})
		return
	}

	if filter.Year == 0 || filter.Month == 0 {
		e := errPeriodRequired.Error()
		c.JSON(http.StatusBadRequest, ReconciliationResponse{
			Error: &e,
		})
		return
	}

	period := types.NewPeriod(filter.Year, time.Month(filter.Month))
	if !period.Valid() {
		e := models.ErrPeriodInvalid.Error()
		c.JSON(http.StatusBadRequest, ReconciliationResponse{
			Error: &e,
		})
		return
	}

	tolerance := config.Tolerance()
	if filter.Tolerance != "" {
		parsed, err := decimal.NewFromString(filter.Tolerance)
		if err != nil || parsed.IsNegative() {
			e := errToleranceInvalid.Error()
			c.JSON(http.StatusBadRequest, ReconciliationResponse{
				Error: &e,
			})
			return
		}
		tolerance = parsed
	}

	scope, err := authz.ScopeFor(ctx, authz.ActionReconciliationRead)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ReconciliationResponse{
			Error: &e,
		})
		return
	}

	// Actors that only see their own church reconcile exactly that church.
	// Asking for another church is rejected, asking for none selects it.
	if scope == authz.ScopeOwn {
		if ctx.ChurchID == nil {
			c.JSON(http.StatusOK, ReconciliationResponse{
				Data: make([]reconciliation.Finding, 0),
			})
			return
		}

		if filter.ChurchID == ipu_uuid.Nil {
			filter.ChurchID = ipu_uuid.UUID{UUID: *ctx.ChurchID}
		} else if err := authz.Authorize(ctx, authz.ActionReconciliationRead, authz.Resource{ChurchID: &filter.ChurchID.UUID}); err != nil {
			e := err.Error()
			c.JSON(status(err), ReconciliationResponse{
				Error: &e,
			})
			return
		}
	}

	findings := make([]reconciliation.Finding, 0)
	if filter.ChurchID != ipu_uuid.Nil {
		var church models.Church
		err := models.DB.First(&church, filter.ChurchID.UUID).Error
		if err != nil {
			e := err.Error()
			c.JSON(status(err), ReconciliationResponse{
				Error: &e,
			})
			return
		}

		finding, ok, err := reconciliation.Compare(models.DB, church, period, tolerance)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), ReconciliationResponse{
				Error: &e,
			})
			return
		}
		if ok {
			findings = append(findings, finding)
		}
	} else {
		findings, err = reconciliation.ComparePeriod(models.DB, period, tolerance)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), ReconciliationResponse{
				Error: &e,
			})
			return
		}
	}

	c.JSON(http.StatusOK, ReconciliationResponse{
		Data: findings,
	})
}
