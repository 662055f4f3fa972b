package commons

import "github.com/api-sage/retail-banking-ledger/internal/domain"

type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, err error, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Code:    domain.Code(err),
		Errors:  errors,
	}
}
