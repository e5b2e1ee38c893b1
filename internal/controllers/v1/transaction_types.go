package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/models"
	ipu_uuid "github.com/ipupy-tesoreria/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

type TransactionEditable struct {
	ChurchID uuid.UUID       `json:"churchId" example:"8271815b-12c7-4ab8-bd09-55e4d1f26e5d"`  // ID of the church the cash book belongs to
	Date     time.Time       `json:"date" example:"2026-07-12T00:00:00Z"`                      // Date of the row. Defaults to the current time.
	Concept  string          `json:"concept" example:"Compra de artículos de limpieza"`        // What the money was received or spent for
	Income   decimal.Decimal `json:"income" example:"350000" default:"0"`                      // Money coming in. Either income or expense must be set.
	Expense  decimal.Decimal `json:"expense" example:"125000" default:"0"`                     // Money going out. Either income or expense must be set.

	ImportHash string `json:"importHash" example:"867e3a26dc0baf73f4bff506f31a97f6c32088917e9e5cf1a5ed6f3f84a6fa70" default:""` // The SHA256 hash of a unique combination of values to use in duplicate detection
}

// model returns the database resource for the API representation of the editable fields
func (editable TransactionEditable) model() models.ChurchTransaction {
	return models.ChurchTransaction{
		ChurchID:   editable.ChurchID,
		Date:       editable.Date,
		Concept:    editable.Concept,
		Income:     editable.Income,
		Expense:    editable.Expense,
		ImportHash: editable.ImportHash,
	}
}

type TransactionLinks struct {
	Self   string `json:"self" example:"https://example.com/api/v1/transactions/d430d7c3-d14c-4712-9336-ee56965a6673"` // The transaction itself
	Church string `json:"church" example:"https://example.com/api/v1/churches/8271815b-12c7-4ab8-bd09-55e4d1f26e5d"`  // The church the transaction belongs to
}

// Transaction is the representation of a ChurchTransaction in API v1.
type Transaction struct {
	models.DefaultModel
	TransactionEditable
	Links TransactionLinks `json:"links"`
}

// newTransaction returns the API v1 representation of the resource
func newTransaction(c *gin.Context, model models.ChurchTransaction) Transaction {
	url := c.GetString(string(models.DBContextURL))

	return Transaction{
		DefaultModel: model.DefaultModel,
		TransactionEditable: TransactionEditable{
			ChurchID:   model.ChurchID,
			Date:       model.Date,
			Concept:    model.Concept,
			Income:     model.Income,
			Expense:    model.Expense,
			ImportHash: model.ImportHash,
		},
		Links: TransactionLinks{
			Self:   fmt.Sprintf("%s/v1/transactions/%s", url, model.ID),
			Church: fmt.Sprintf("%s/v1/churches/%s", url, model.ChurchID),
		},
	}
}

type TransactionListResponse struct {
	Data       []Transaction `json:"data"`                                                          // List of transactions
	Error      *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination   `json:"pagination"`                                                    // Pagination information
}

type TransactionCreateResponse struct {
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []TransactionResponse `json:"data"`                                                          // List of created Transactions
}

func (t *TransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, TransactionResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type TransactionResponse struct {
	Error *string      `json:"error" example:"the transaction concept must be set"` // The error, if any occurred for this transaction
	Data  *Transaction `json:"data"`                                                // The Transaction data, if creation was successful
}

type TransactionQueryFilter struct {
	ChurchID  ipu_uuid.UUID `form:"church"`                        // ID of the church
	FromDate  time.Time     `form:"fromDate" filterField:"false"`  // Transactions at and after this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided.
	UntilDate time.Time     `form:"untilDate" filterField:"false"` // Transactions before and at this date. Ignores exact time, matches on the day of the RFC3339 timestamp provided.
	Concept   string        `form:"concept" filterField:"false"`   // Concept contains this string
	Offset    uint          `form:"offset" filterField:"false"`    // The offset of the first Transaction returned. Defaults to 0.
	Limit     int           `form:"limit" filterField:"false"`     // Maximum number of Transactions to return. Defaults to 50.
}

func (f TransactionQueryFilter) model() models.ChurchTransaction {
	// This does not set the string and date fields since they are
	// handled in the controller function
	return TransactionEditable{
		ChurchID: f.ChurchID.UUID,
	}.model()
}
