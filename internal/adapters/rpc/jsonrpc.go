package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ipmint/go-registrar/internal/service"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// The media payload travels base64-encoded inside the request body, so the
// cap leaves headroom over the decoded upload bound.
const maxRPCBodyBytes int64 = 48 << 20

const (
	maxListLimit  = 1000
	maxListOffset = 1_000_000
)

// Service error codes, one band per concern.
const (
	codeRegisterFailed = -32010
	codeBusy           = -32011
	codeResetFailed    = -32012
	codeHistoryFailed  = -32020
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !s.authorizeRPC(w, r) {
		return
	}
	if s.service == nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32099, Message: "service is not initialized"},
		})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow(rateLimitKey(r, s.extractRPCToken(r)), time.Now()) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		// The id is unknowable after a parse failure; it must still be
		// present, as an explicit null.
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	reqID := fmt.Sprintf("rpc_%d", time.Now().UnixNano())
	started := time.Now()
	s.log.Info("rpc request", "request_id", reqID, "method", req.Method, "rpc_id", string(req.ID))

	result, rpcErr := s.dispatchRPC(r, req.Method, req.Params)
	if s.observeRPC != nil {
		s.observeRPC(req.Method, rpcErr == nil)
	}
	if rpcErr != nil {
		s.log.Error("rpc failed", "request_id", reqID, "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		s.log.Info("rpc response", "request_id", reqID, "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	})
}

func (s *Server) dispatchRPC(r *http.Request, method string, rawParams json.RawMessage) (any, *rpcError) {
	switch method {
	case "health_check":
		return map[string]string{"status": "ok"}, nil

	case "register_asset":
		var input service.RegisterInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, rpcInvalidParams()
		}
		result, err := s.service.RegisterAsset(r.Context(), input)
		if err != nil {
			if errors.Is(err, service.ErrBusy) {
				return nil, rpcServiceError(codeBusy, err)
			}
			return nil, rpcServiceError(codeRegisterFailed, err)
		}
		return result, nil

	case "get_workflow_state":
		return s.service.WorkflowState(), nil

	case "reset_workflow":
		if err := s.service.ResetWorkflow(); err != nil {
			if errors.Is(err, service.ErrBusy) {
				return nil, rpcServiceError(codeBusy, err)
			}
			return nil, rpcServiceError(codeResetFailed, err)
		}
		return s.service.WorkflowState(), nil

	case "list_registrations":
		limit, offset, err := decodeListParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams()
		}
		return s.service.ListRegistrations(limit, offset), nil

	case "doctor_report":
		return s.service.Doctor(r.Context()), nil

	case "get_metrics":
		return s.service.Metrics(), nil

	default:
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	}
}

func decodeParams(rawParams json.RawMessage, out any) error {
	if len(rawParams) == 0 {
		return errors.New("params are required")
	}
	dec := json.NewDecoder(bytes.NewReader(rawParams))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("trailing data in params")
	}
	return nil
}

func decodeListParams(rawParams json.RawMessage) (limit, offset int, err error) {
	if len(rawParams) == 0 {
		return 0, 0, nil
	}
	var params struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if err := decodeParams(rawParams, &params); err != nil {
		return 0, 0, err
	}
	if params.Limit < 0 || params.Limit > maxListLimit {
		return 0, 0, fmt.Errorf("limit out of range: %d", params.Limit)
	}
	if params.Offset < 0 || params.Offset > maxListOffset {
		return 0, 0, fmt.Errorf("offset out of range: %d", params.Offset)
	}
	return params.Limit, params.Offset, nil
}

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: -32602, Message: "invalid params"}
}

func rpcServiceError(code int, err error) *rpcError {
	return &rpcError{Code: code, Message: err.Error()}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCInvalidRequest(w http.ResponseWriter, id json.RawMessage) {
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: -32600, Message: "invalid request"},
	})
}
