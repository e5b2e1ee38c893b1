package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

func resourceOptionsDetail[R models.Church | models.Report | models.Fund | models.ChurchTransaction](c *gin.Context, resource R) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&resource, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}
