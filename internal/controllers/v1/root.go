// Package v1 implements the v1 REST API of the treasury backend.
//
// Every handler resolves the verified identity of the request against the
// permission registry before it touches storage. List endpoints narrow
// their queries to the actor's scope instead of filtering afterwards.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipupy-tesoreria/backend/internal/httputil"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

func RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.DELETE("", Cleanup)
	r.OPTIONS("", Options)
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Churches       string `json:"churches" example:"https://example.com/api/v1/churches"`             // URL of Church collection endpoint
	Reports        string `json:"reports" example:"https://example.com/api/v1/reports"`               // URL of Report collection endpoint
	Funds          string `json:"funds" example:"https://example.com/api/v1/funds"`                   // URL of Fund collection endpoint
	Movements      string `json:"movements" example:"https://example.com/api/v1/movements"`           // URL of Fund Movement collection endpoint
	Transfers      string `json:"transfers" example:"https://example.com/api/v1/transfers"`           // URL of the transfer endpoint
	Transactions   string `json:"transactions" example:"https://example.com/api/v1/transactions"`     // URL of Church Transaction collection endpoint
	Reconciliation string `json:"reconciliation" example:"https://example.com/api/v1/reconciliation"` // URL of the reconciliation endpoint
	Import         string `json:"import" example:"https://example.com/api/v1/import"`                 // URL of import list endpoint
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Churches:       url + "/v1/churches",
			Reports:        url + "/v1/reports",
			Funds:          url + "/v1/funds",
			Movements:      url + "/v1/movements",
			Transfers:      url + "/v1/transfers",
			Transactions:   url + "/v1/transactions",
			Reconciliation: url + "/v1/reconciliation",
			Import:         url + "/v1/import",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGetDelete(c)
}
