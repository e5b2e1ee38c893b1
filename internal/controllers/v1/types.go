package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/identity"
	ipu_uuid "github.com/ipupy-tesoreria/backend/internal/uuid"
)

type URIID struct {
	ID ipu_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

type Pagination struct {
	Count  int   `json:"count" example:"25"`  // The amount of records returned in this response
	Offset uint  `json:"offset" example:"50"` // The offset for the first record returned
	Limit  int   `json:"limit" example:"25"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total" example:"827"` // The total number of resources matching the query
}

// requireIdentity returns the identity the middleware attached to the
// request. Without one the request is aborted with 401, handlers must
// return when ok is false.
func requireIdentity(c *gin.Context) (authz.Context, bool) {
	ctx, ok := identity.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpError{
			Error: identity.ErrTokenMissing.Error(),
		})
	}

	return ctx, ok
}
