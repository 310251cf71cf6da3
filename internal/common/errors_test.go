package common

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestKindOf(t *testing.T) {
	base := NewAppError(KindTransientNetworkFailure, "openai call", errors.New("deadline exceeded"))
	wrapped := fmt.Errorf("dispatch: %w", base)

	if got := KindOf(wrapped); got != KindTransientNetworkFailure {
		t.Fatalf("KindOf = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("KindOf(plain) = %q", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q", got)
	}
}

func TestIsKindWalksNestedAppErrors(t *testing.T) {
	inner := NewAppError(KindNotFoundForTest, "object", ErrNotFound)
	outer := NewAppError(KindStorageError, "fetch", inner)

	if !IsKind(outer, KindStorageError) || !IsKind(outer, KindNotFoundForTest) {
		t.Fatal("expected both kinds in chain")
	}
	if IsKind(outer, KindSchemaMismatch) {
		t.Fatal("unexpected kind match")
	}
	if !errors.Is(outer, ErrNotFound) {
		t.Fatal("sentinel lost through Unwrap")
	}
}

// KindNotFoundForTest exercises IsKind with a kind outside the main taxonomy.
const KindNotFoundForTest ErrorKind = "NotFound"

func TestAppErrorMessage(t *testing.T) {
	err := Errorf(KindSchemaMismatch, "missing required columns, found: %v", []string{"a", "b"})
	want := "SchemaMismatch: missing required columns, found: [a b]"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestGRPCCode(t *testing.T) {
	if GRPCCode(KindMalformedWorkItem) != codes.InvalidArgument {
		t.Fatal("malformed item should be InvalidArgument")
	}
	if GRPCCode(KindTransientNetworkFailure) != codes.Unavailable {
		t.Fatal("transient should be Unavailable")
	}
	if GRPCCode(KindInternal) != codes.Internal {
		t.Fatal("internal should be Internal")
	}
}
