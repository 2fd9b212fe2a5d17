package errs

import (
	"strings"
	"testing"
)

func TestCodeExtraction(t *testing.T) {
	err := ErrRequestTimeout.Wrap()
	if got := Code(err); got != RequestTimeoutError {
		t.Errorf("Code = %d, want %d", got, RequestTimeoutError)
	}
	if got := Code(nil); got != 0 {
		t.Errorf("Code(nil) = %d, want 0", got)
	}
}

func TestWrapMsgCarriesDetail(t *testing.T) {
	err := ErrNotConnected.WrapMsg("command", "type", "message")
	if Code(err) != NotConnectedError {
		t.Fatalf("Code = %d", Code(err))
	}
	if !strings.Contains(err.Error(), "type=message") {
		t.Errorf("detail missing from %q", err.Error())
	}
}

func TestWrapMsgDoesNotMutateSentinel(t *testing.T) {
	_ = ErrNotConnected.WrapMsg("first", "k", "v")
	err := ErrNotConnected.Wrap()
	if strings.Contains(err.Error(), "first") {
		t.Errorf("sentinel leaked a previous call's detail: %q", err.Error())
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	err := ErrServerRejected.WrapMsg("invalid pair")
	if !ErrServerRejected.Is(err) {
		t.Error("Is should match the same code through a stack wrap")
	}
	if ErrRequestTimeout.Is(err) {
		t.Error("Is should not match a different code")
	}
}

func TestCodeRelation(t *testing.T) {
	// registered at init: exhausted reconnection is a not-connected condition
	if !ErrNotConnected.Is(ErrReconnectExhausted.Wrap()) {
		t.Error("not-connected should cover reconnect-exhausted")
	}
	if ErrReconnectExhausted.Is(ErrNotConnected.Wrap()) {
		t.Error("the relation is directional")
	}
}
