package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "typed_error",
			err:  Newf(500, CodeValidationFailed, "cell 3 raised"),
			want: CodeValidationFailed,
		},
		{
			name: "wrapped_typed_error",
			err:  fmt.Errorf("handling request: %w", Newf(404, CodeNotFound, "nope")),
			want: CodeNotFound,
		},
		{
			name: "plain_error",
			err:  errors.New("something"),
			want: CodeInternal,
		},
		{
			name: "nil_error",
			err:  nil,
			want: CodeInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("engine exploded")
	err := New(500, CodeValidationFailed, cause)

	if err.Error() != "engine exploded" {
		t.Fatalf("Error()=%q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap chain lost the cause")
	}
	if !Is(err, CodeValidationFailed) {
		t.Fatal("Is did not match the code")
	}
	if Is(err, CodeNotFound) {
		t.Fatal("Is matched the wrong code")
	}
}
