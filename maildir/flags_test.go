package maildir

import (
	"errors"
	"testing"

	mserrors "github.com/infodancer/mailstore/errors"
)

func TestCanonicalFlags(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"S", "S"},
		{"SS", "S"},
		{"FSFS", "FS"},
		{"TRS", "TRS"},
	}
	for _, tt := range tests {
		if got := canonicalFlags(tt.input); got != tt.want {
			t.Errorf("canonicalFlags(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestUnionFlags(t *testing.T) {
	tests := []struct {
		current, add, want string
	}{
		{"", "S", "S"},
		{"S", "S", "S"},
		{"S", "RF", "SRF"},
		{"RS", "SR", "RS"},
	}
	for _, tt := range tests {
		if got := unionFlags(tt.current, tt.add); got != tt.want {
			t.Errorf("unionFlags(%q, %q) = %q, want %q", tt.current, tt.add, got, tt.want)
		}
	}
}

func TestDifferenceFlags(t *testing.T) {
	tests := []struct {
		current, remove, want string
	}{
		{"", "S", ""},
		{"S", "S", ""},
		{"SRF", "R", "SF"},
		{"SF", "T", "SF"},
		{"SSF", "F", "S"},
	}
	for _, tt := range tests {
		if got := differenceFlags(tt.current, tt.remove); got != tt.want {
			t.Errorf("differenceFlags(%q, %q) = %q, want %q", tt.current, tt.remove, got, tt.want)
		}
	}
}

func TestValidateFlags(t *testing.T) {
	for _, ok := range []string{"", "S", "DFPRST", "a"} {
		if err := validateFlags("test", ok); err != nil {
			t.Errorf("validateFlags(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"S,", ":", "S/", "1", "é"} {
		err := validateFlags("test", bad)
		if !errors.Is(err, mserrors.ErrInvalidFlag) {
			t.Errorf("validateFlags(%q) = %v, want ErrInvalidFlag", bad, err)
		}
		if mserrors.KindOf(err) != mserrors.KindInvalidArgument {
			t.Errorf("validateFlags(%q) kind = %v", bad, mserrors.KindOf(err))
		}
	}
}
