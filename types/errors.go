package types

import (
	"errors"
	"fmt"
)

// ErrValidation matches every structural error detected before any network call.
// Use errors.Is(err, ErrValidation); validation errors are never retried.
var ErrValidation = errors.New("validation error")

// ErrCancelled marks pathways that were never started because the run was cancelled.
var ErrCancelled = errors.New("reconciliation cancelled")

type DuplicateEndpointError struct {
	EID      EID
	Existing Endpoint
	Incoming Endpoint
}

func (e *DuplicateEndpointError) Error() string {
	return fmt.Sprintf("duplicate endpoint for eid %d: %s already registered, got %s", e.EID, e.Existing, e.Incoming)
}

func (e *DuplicateEndpointError) Is(target error) bool { return target == ErrValidation }

type UnknownEndpointError struct {
	EID EID
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint: eid %d is not registered", e.EID)
}

func (e *UnknownEndpointError) Is(target error) bool { return target == ErrValidation }

type DuplicatePathwayError struct {
	From EID
	To   EID
}

func (e *DuplicatePathwayError) Error() string {
	return fmt.Sprintf("duplicate pathway %d->%d", e.From, e.To)
}

func (e *DuplicatePathwayError) Is(target error) bool { return target == ErrValidation }

type SelfLoopError struct {
	EID EID
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("pathway from eid %d to itself", e.EID)
}

func (e *SelfLoopError) Is(target error) bool { return target == ErrValidation }

// InvalidPathwayConfigError names the pathway and the offending field of its resolved config.
type InvalidPathwayConfigError struct {
	Pathway string
	Field   string
	Reason  string
	Err     error
}

func (e *InvalidPathwayConfigError) Error() string {
	msg := fmt.Sprintf("invalid config for pathway %s: %s: %s", e.Pathway, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidPathwayConfigError) Unwrap() error { return e.Err }

func (e *InvalidPathwayConfigError) Is(target error) bool { return target == ErrValidation }

type InvalidAddressError struct {
	Family string
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s address %q: %s", e.Family, e.Input, e.Reason)
}

func (e *InvalidAddressError) Is(target error) bool { return target == ErrValidation }

// NetworkError is a transient RPC failure; callers may retry it.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StateConflictError reports remote state that changed between read and write.
type StateConflictError struct {
	Pathway  string
	Field    string
	Observed string
	Current  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict on pathway %s field %s: observed %s, now %s", e.Pathway, e.Field, e.Observed, e.Current)
}

// WriteRevertedError is a permanent write failure: the transaction was mined and reverted,
// or the node rejected it as invalid.
type WriteRevertedError struct {
	TxHash string
	Reason string
}

func (e *WriteRevertedError) Error() string {
	if e.TxHash == "" {
		return fmt.Sprintf("write rejected: %s", e.Reason)
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
