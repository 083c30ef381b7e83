package errs

import (
	"errors"
	"log/slog"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("machine %q not found", "M-01")
	wrapped := Wrap(Wrapf(base, "resolve machine"), "record event")

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("KindOf() = %s, want not_found", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("Is(not_found) = false")
	}
	if Is(wrapped, KindValidation) {
		t.Fatalf("Is(validation) = true")
	}
	if wrapped.Error() != `record event: resolve machine: machine "M-01" not found` {
		t.Fatalf("Error() = %q", wrapped.Error())
	}
}

func TestAsKeepsSentinel(t *testing.T) {
	sentinel := errors.New("alert already resolved")
	err := As(KindInvalidState, sentinel)

	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is(sentinel) = false")
	}
	if KindOf(err) != KindInvalidState {
		t.Fatalf("KindOf() = %s", KindOf(err))
	}
	if As(KindTransient, nil) != nil {
		t.Fatalf("As(nil) should stay nil")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Fatalf("KindOf(plain) = %s", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("KindOf(nil) = %s", got)
	}
}

func TestLoggableIncludesChainAndKind(t *testing.T) {
	err := Wrap(Validation("part number is required"), "submit production")

	value := Loggable(err).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v", value.Kind())
	}

	fields := map[string]slog.Value{}
	for _, attr := range value.Group() {
		fields[attr.Key] = attr.Value
	}
	if fields["kind"].String() != "validation" {
		t.Fatalf("kind = %q", fields["kind"].String())
	}
	if fields["message"].String() != "submit production: part number is required" {
		t.Fatalf("message = %q", fields["message"].String())
	}
	if chain := ErrorChainStrings(err); len(chain) != 3 {
		t.Fatalf("chain len = %d, chain=%v", len(chain), chain)
	}
}
