package apperr

import (
	"errors"
	"testing"
)

func TestHTTPStatusMapsEveryKind(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      400,
		KindNotFound:        404,
		KindRateLimited:     429,
		KindBudgetExhausted: 503,
		KindUpstream:        502,
		KindCorpus:          502,
		KindInternal:        500,
		Kind("unknown"):     500,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("Kind(%q).HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestAsUnwrapsTypedError(t *testing.T) {
	base := New(KindNotFound, "game_not_found", "no such game")
	wrapped := errors.New("context: " + base.Error())
	if _, ok := As(wrapped); ok {
		t.Fatal("As should not match a plain error carrying only similar text")
	}
	if e, ok := As(base); !ok || e.Code != "game_not_found" {
		t.Fatalf("As(base) = %+v, %v; want the original *Error", e, ok)
	}
}

func TestAsMatchesWrappedError(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(KindUpstream, "download_failed", "could not fetch source", cause)
	outer := errors.Join(wrapped) // errors.As must see through one layer of joining/wrapping
	e, ok := As(outer)
	if !ok || e.Code != "download_failed" {
		t.Fatalf("As(outer) = %+v, %v", e, ok)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Wrap should preserve Unwrap() chain to the original cause")
	}
}

func TestNotFoundAndValidationHelpers(t *testing.T) {
	nf := NotFound("x", "y")
	if nf.Kind != KindNotFound {
		t.Errorf("NotFound() Kind = %v, want %v", nf.Kind, KindNotFound)
	}
	v := Validation("x", "y")
	if v.Kind != KindValidation {
		t.Errorf("Validation() Kind = %v, want %v", v.Kind, KindValidation)
	}
}
