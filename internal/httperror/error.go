// Package httperror provides the error body for responses that are written
// outside of the versioned API handlers.
package httperror

type Error struct {
	Message string `json:"error" example:"you must specify a report ID"`
}

func New(e error) Error {
	return Error{
		Message: e.Error(),
	}
}

func NewFromString(s string) Error {
	return Error{
		Message: s,
	}
}
