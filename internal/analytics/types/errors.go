package types

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

// GenericFailureMessage is reported when the backend fails without explanation.
const GenericFailureMessage = "analytics request failed"

var (
	ErrTransport      = errors.New("analytics transport error")
	ErrProtocol       = errors.New("analytics protocol error")
	ErrBackendFailure = errors.New("analytics backend failure")
)

// TransportError marks network failures, non-2xx replies and undecodable bodies.
func TransportError(op string, err error) error {
	if err == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrTransport, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrTransport, err), op)
}

// ProtocolError marks replies whose shape matches no known state.
func ProtocolError(msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeProtocol, ErrProtocol, msg)
}

// BackendFailure carries the server-provided failure text, or the generic one.
func BackendFailure(msg string) error {
	if msg == "" {
		msg = GenericFailureMessage
	}
	return pkgerrors.Wrap(pkgerrors.CodeBackendFailure, ErrBackendFailure, msg)
}
