package entity

import (
	"time"
)

// OperationError records a rejected marketplace call.
type OperationError struct {
	OperationId string                 `json:"operationId"`
	Time        time.Time              `json:"time"`
	Operation   string                 `json:"operation"`
	Caller      Address                `json:"caller"`
	Code        string                 `json:"code"`
	Error       string                 `json:"error"`
	Extra       map[string]interface{} `json:"extra"`
}

func (e OperationError) Slug() string {
	return "rejection-" + e.OperationId
}

func NewOperationError(operationId, operation string, caller Address, code string, err error, extra map[string]interface{}) OperationError {
	return OperationError{
		OperationId: operationId,
		Time:        time.Now(),
		Operation:   operation,
		Caller:      caller,
		Code:        code,
		Error:       err.Error(),
		Extra:       extra,
	}
}
