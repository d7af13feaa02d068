package auditerr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := Format("normalize", "data.csv", 4, `column "consumption_after": not a number "abc"`, nil)
	want := `[FORMAT] normalize data.csv:4: column "consumption_after": not a number "abc"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_WithCause(t *testing.T) {
	err := NotFound("ingest", "missing.csv", os.ErrNotExist)
	want := "[NOT_FOUND] ingest missing.csv: input not found: file does not exist"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Unwrap should let errors.Is find the cause")
	}
}

func TestError_IsKind(t *testing.T) {
	err := fmt.Errorf("run: %w", Format("ingest", "a.csv", 2, "bad", nil))

	if !errors.Is(err, ErrFormat) {
		t.Error("wrapped format error should match ErrFormat")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("format error should not match ErrNotFound")
	}
	if !errors.Is(err, &Error{Kind: KindFormat, Op: "ingest"}) {
		t.Error("matching op should match")
	}
	if errors.Is(err, &Error{Kind: KindFormat, Op: "normalize"}) {
		t.Error("different op should not match")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"not found", NotFound("ingest", "x.csv", nil), ExitNotFound},
		{"format", Format("ingest", "x.csv", 1, "bad", nil), ExitFormat},
		{"empty", Empty("pipeline", "x.csv"), ExitEmpty},
		{"internal", Internal("report", errors.New("disk full")), ExitInternal},
		{"plain", errors.New("boom"), ExitInternal},
		{"wrapped", fmt.Errorf("ctx: %w", Empty("pipeline", "x.csv")), ExitEmpty},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: ExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Empty("pipeline", "")); got != KindEmpty {
		t.Errorf("KindOf(empty) = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
}
