package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := Transient("pop task", errors.New("connection refused"))
	want := "[NET001] pop task: connection refused"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	bare := New(KindInternal, CodeInternal, "do thing", nil)
	if bare.Error() != "[GEN001] do thing" {
		t.Errorf("got %q", bare.Error())
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("v", errors.New("x")), KindValidation},
		{Transient("t", errors.New("x")), KindTransient},
		{Terminal(CodeUpload, "u", errors.New("x")), KindTerminal},
		{Internal("i", errors.New("x")), KindInternal},
		{errors.New("untagged"), KindInternal},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := Validation("decode task", errors.New("bad json"))
	wrapped := fmt.Errorf("handling task abc: %w", inner)

	if !IsValidation(wrapped) {
		t.Error("validation kind lost through wrapping")
	}
	if KindOf(wrapped) != KindValidation {
		t.Errorf("got %v", KindOf(wrapped))
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Terminal(CodeUpload, "upload x", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestValidationf(t *testing.T) {
	err := Validationf("upload task", "image %s is empty", "x.jpg")
	if !IsValidation(err) {
		t.Error("expected validation kind")
	}
	if err.Error() != "[VAL001] upload task: image x.jpg is empty" {
		t.Errorf("got %q", err.Error())
	}
}
