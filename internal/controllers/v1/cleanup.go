package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

// @Summary		Delete everything
// @Description	Permanently deletes all resources
// @Tags			v1
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		401		{object}	httpError
// @Failure		403		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			confirm	query		string	false	"Confirmation to delete all resources. Must have the value 'yes-please-delete-everything'"
// @Router			/v1 [delete]
func Cleanup(c *gin.Context) {
	ctx, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := authz.Authorize(ctx, authz.ActionCleanup, authz.Resource{}); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var params struct {
		Confirm string `form:"confirm"`
	}

	err := c.Bind(&params)
	if err != nil || params.Confirm != "yes-please-delete-everything" {
		c.JSON(http.StatusBadRequest, httpError{
			Error: errCleanupConfirmation.Error(),
		})
		return
	}

	// Foreign keys are checked during cleanup,
	// add new models *before* any of the models
	// they reference
	resources := []any{
		models.ReportNote{},
		models.FundMovement{},
		models.ChurchTransaction{},
		models.Report{},
		models.Fund{},
		models.Church{},
		models.IdempotencyKey{},
	}

	// Use a transaction so that we can roll back if errors happen
	tx := models.DB.Begin()

	for _, model := range resources {
		err := tx.Unscoped().Where("true").Delete(&model).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpError{
				Error: err.Error(),
			})
			tx.Rollback()
			return
		}
	}

	tx.Commit()
	c.JSON(http.StatusNoContent, nil)
}
