package errors

import (
	"strings"
)

// JSON-RPC 2.0 and EIP-1193 error codes used on the wire.
const (
	CodeParseError     int64 = -32700
	CodeInvalidRequest int64 = -32600
	CodeMethodNotFound int64 = -32601
	CodeInvalidParams  int64 = -32602
	CodeInternalError  int64 = -32603
	CodeUserRejected   int64 = 4001
	CodeUnauthorized   int64 = 4100
)

// RPCErrorObject is the transport-neutral shape of a JSON-RPC error object.
type RPCErrorObject struct {
	Code    int64          `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// RPCErrorAdapter converts classified errors to JSON-RPC error objects and back.
type RPCErrorAdapter struct{}

// NewRPCErrorAdapter creates a new RPC error adapter.
func NewRPCErrorAdapter() *RPCErrorAdapter {
	return &RPCErrorAdapter{}
}

// CodeFor determines the JSON-RPC error code for err based on its classification.
func (a *RPCErrorAdapter) CodeFor(err error) int64 {
	c, ok := AsClassified(err)
	if !ok {
		return CodeInternalError
	}
	switch c.Category() {
	case CategoryMethodNotFound:
		return CodeMethodNotFound
	case CategoryInvalidParams, CategoryValidation:
		return CodeInvalidParams
	case CategoryUserRejected:
		return CodeUserRejected
	case CategoryPermission:
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}

// ToRPC builds the wire error object for err. The classification travels in Data so
// the receiving side can rebuild an equivalent ClassifiedError.
func (a *RPCErrorAdapter) ToRPC(err error) RPCErrorObject {
	obj := RPCErrorObject{Code: a.CodeFor(err), Message: Describe(err)}
	if c, ok := AsClassified(err); ok {
		obj.Data = map[string]any{"category": string(c.Category())}
		if c.RetryStrategy() != RetryNever {
			obj.Data["retry"] = string(c.RetryStrategy())
		}
	}
	return obj
}

// FromRPC rebuilds a ClassifiedError from a received error object.
func (a *RPCErrorAdapter) FromRPC(obj RPCErrorObject) *ClassifiedError {
	category := categoryForCode(obj.Code)
	if raw, ok := obj.Data["category"].(string); ok && raw != "" {
		category = ErrorCategory(raw)
	}
	b := NewError(category, obj.Message).WithContext("code", obj.Code)
	if raw, ok := obj.Data["retry"].(string); ok && raw != "" {
		b = b.WithRetry(RetryStrategy(raw))
	}
	return b.Build()
}

func categoryForCode(code int64) ErrorCategory {
	switch code {
	case CodeMethodNotFound:
		return CategoryMethodNotFound
	case CodeInvalidParams:
		return CategoryInvalidParams
	case CodeUserRejected:
		return CategoryUserRejected
	case CodeUnauthorized:
		return CategoryPermission
	default:
		return CategoryInternal
	}
}

// Describe renders an error chain as a user-facing message: classified layers contribute
// their message only, unclassified causes their Error() text.
func Describe(err error) string {
	var parts []string
	for err != nil {
		c, ok := err.(*ClassifiedError)
		if !ok {
			parts = append(parts, err.Error())
			break
		}
		parts = append(parts, c.message)
		err = c.cause
	}
	return strings.Join(parts, ": ")
}
