package maildir

import (
	"strings"

	gomaildir "github.com/emersion/go-maildir"

	mserrors "github.com/infodancer/mailstore/errors"
)

// Standard maildir flag characters.
const (
	FlagDraft   = gomaildir.FlagDraft
	FlagFlagged = gomaildir.FlagFlagged
	FlagPassed  = gomaildir.FlagPassed
	FlagReplied = gomaildir.FlagReplied
	FlagSeen    = gomaildir.FlagSeen
	FlagTrashed = gomaildir.FlagTrashed
)

// hasFlag reports whether the raw flag text contains f.
func hasFlag(flags string, f gomaildir.Flag) bool {
	return strings.ContainsRune(flags, rune(f))
}

// canonicalFlags removes duplicate characters, keeping the first occurrence
// of each in its original position.
func canonicalFlags(flags string) string {
	var b strings.Builder
	for _, r := range flags {
		if strings.ContainsRune(b.String(), r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// unionFlags returns current followed by the characters of add it lacks.
func unionFlags(current, add string) string {
	return canonicalFlags(current + add)
}

// differenceFlags returns current without any character of remove.
func differenceFlags(current, remove string) string {
	var b strings.Builder
	for _, r := range canonicalFlags(current) {
		if !strings.ContainsRune(remove, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateFlags checks that flags can be written into a filename.
// Maildir reserves ASCII letters for flags; anything else could break the
// name or the info separator.
func validateFlags(op, flags string) error {
	for _, r := range flags {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return mserrors.E(mserrors.KindInvalidArgument, op, flags, mserrors.ErrInvalidFlag)
		}
	}
	return nil
}
