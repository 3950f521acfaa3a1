package types

import (
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

func TestErrorConstructorsCarrySentinels(t *testing.T) {
	transport := TransportError("submit", io.ErrUnexpectedEOF)
	if !errors.Is(transport, ErrTransport) || !errors.Is(transport, io.ErrUnexpectedEOF) {
		t.Fatalf("transport error lost its chain: %v", transport)
	}
	if pkgerrors.CodeOf(transport) != pkgerrors.CodeDependency {
		t.Fatalf("unexpected code %s", pkgerrors.CodeOf(transport))
	}

	if !errors.Is(ProtocolError("bad"), ErrProtocol) {
		t.Fatalf("protocol sentinel missing")
	}

	failure := BackendFailure("")
	if !errors.Is(failure, ErrBackendFailure) {
		t.Fatalf("backend sentinel missing")
	}
	if pkgerrors.As(failure).Message() != GenericFailureMessage {
		t.Fatalf("expected generic message, got %q", pkgerrors.As(failure).Message())
	}
	if pkgerrors.As(BackendFailure("quota exceeded")).Message() != "quota exceeded" {
		t.Fatalf("server message should be preserved")
	}
}
