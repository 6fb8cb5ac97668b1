// Package rpc provides a line-delimited JSON-RPC 2.0 client for remote
// services reachable over TCP or a Unix socket, and a pooled variant that
// amortizes connection setup across concurrent callers.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard error codes following JSON-RPC 2.0 conventions.
const (
	// Parse error - invalid JSON
	ErrCodeParse = -32700
	// Invalid request - not a valid Request object
	ErrCodeInvalidRequest = -32600
	// Method not found
	ErrCodeMethodNotFound = -32601
	// Invalid params
	ErrCodeInvalidParams = -32602
	// Internal error
	ErrCodeInternal = -32603
)

// Request represents a JSON-RPC request.
type Request struct {
	// JSONRPC must be "2.0"
	JSONRPC string `json:"jsonrpc"`
	// Method is the RPC method name
	Method string `json:"method"`
	// Params are the method parameters (can be object or array)
	Params json.RawMessage `json:"params,omitempty"`
	// ID is the request identifier (can be string or number)
	ID json.RawMessage `json:"id,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	// JSONRPC is always "2.0"
	JSONRPC string `json:"jsonrpc"`
	// Result is the method result (omitted on error)
	Result json.RawMessage `json:"result,omitempty"`
	// Error is the error object (omitted on success)
	Error *Error `json:"error,omitempty"`
	// ID matches the request ID
	ID json.RawMessage `json:"id,omitempty"`
}

// Error represents a JSON-RPC error.
type Error struct {
	// Code is the error code
	Code int `json:"code"`
	// Message is a short description
	Message string `json:"message"`
	// Data contains additional information
	Data any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s (code %d): %v", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// NewRequest builds a Request for the given method, marshaling params.
func NewRequest(id int, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: "2.0",
		Method:  method,
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}
	return req, nil
}

// ValidateResponse checks that a Response is well-formed JSON-RPC 2.0.
func ValidateResponse(resp *Response) error {
	if resp == nil {
		return errors.New("nil response")
	}
	if resp.JSONRPC != "2.0" {
		return errors.New("jsonrpc must be \"2.0\"")
	}
	if resp.Error != nil && resp.Result != nil {
		return errors.New("response carries both result and error")
	}
	if resp.Error == nil && resp.Result == nil {
		return errors.New("response carries neither result nor error")
	}
	return nil
}
