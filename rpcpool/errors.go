// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcpool

import "errors"

// Classified call errors (spec §4.A "Failure semantics", §7 class 3/4).
var (
	ErrTransient           = errors.New("rpcpool: transient error")
	ErrEndpointUnavailable = errors.New("rpcpool: endpoint unavailable")
	ErrRateLimited         = errors.New("rpcpool: rate limited")
	ErrResponseMalformed   = errors.New("rpcpool: malformed response")
	ErrTimeout             = errors.New("rpcpool: timeout")
	ErrNoHealthyEndpoint   = errors.New("rpcpool: no healthy endpoint for role")
)

// CallError wraps a classified error with the endpoint that produced it.
type CallError struct {
	Endpoint string
	Class    error
	Err      error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return e.Endpoint + ": " + e.Class.Error()
	}
	return e.Endpoint + ": " + e.Class.Error() + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Class }
