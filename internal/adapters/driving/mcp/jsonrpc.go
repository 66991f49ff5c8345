package mcp

import (
	"encoding/json"
	"errors"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// JSON-RPC 2.0 error codes. Taxonomy kinds map onto these; the mapping is
// part of the external contract.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeAuthentication = -32001
	codeNotFound       = -32004
)

// Request is one incoming JSON-RPC 2.0 request. A nil ID marks a
// notification, which gets no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one outgoing JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// codeForKind maps a taxonomy kind onto its JSON-RPC code.
func codeForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindInvalidParams:
		return codeInvalidParams
	case domain.KindMethodNotFound, domain.KindToolNotFound:
		return codeMethodNotFound
	case domain.KindResourceNotFound:
		return codeNotFound
	case domain.KindAuthentication:
		return codeAuthentication
	default:
		return codeServerError
	}
}

// newResult builds a success response.
func newResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// newError builds an error response from any error. Taxonomy errors carry
// their kind in data.kind so clients can switch on it without parsing
// message strings.
func newError(id json.RawMessage, err error) *Response {
	kind := domain.KindOf(err)
	obj := &ErrorObject{
		Code:    codeForKind(kind),
		Message: err.Error(),
		Data:    map[string]any{"kind": string(kind)},
	}
	var taxonomy *domain.Error
	if !errors.As(err, &taxonomy) {
		obj.Message = "internal error: " + err.Error()
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: obj}
}

// newProtocolError builds an error response with an explicit code, for
// failures below the method-dispatch layer (malformed JSON, bad envelope).
func newProtocolError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	}
}
