package maildir

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	mserrors "github.com/infodancer/mailstore/errors"
)

// infoSeparator divides the unique identifier from the flag list in cur/.
const infoSeparator = ":2,"

// stagingName returns the name of a delivery's file in tmp/.
// Format: secs.MnanosPpid.host
// Example: 1705678901.M123456789P12345.mail.example.com
func stagingName(now time.Time, pid int, host string) string {
	return fmt.Sprintf("%d.M%dP%d.%s",
		now.Unix(),
		now.Nanosecond(),
		pid,
		host,
	)
}

// uniqueName returns the identifier a delivered message is published under.
// Device and inode numbers of the staged file make the name unique even
// when the clock goes backwards.
// Format: secs.MnanosPpidVdevIino.host,S=size
func uniqueName(now time.Time, pid int, dev, ino uint64, host string, size int64) string {
	return fmt.Sprintf("%d.M%dP%dV%dI%d.%s,S=%d",
		now.Unix(),
		now.Nanosecond(),
		pid,
		dev,
		ino,
		host,
		size,
	)
}

// curName returns the cur/ filename for id carrying flags.
func curName(id, flags string) string {
	return id + infoSeparator + flags
}

// splitCurName splits a cur/ filename into identifier and flag text.
// ok is false when the name has no info separator.
func splitCurName(name string) (id, flags string, ok bool) {
	return strings.Cut(name, infoSeparator)
}

// sanitizeHostname removes or replaces characters that are problematic in filenames.
func sanitizeHostname(hostname string) string {
	// "/" would create a path, ":" collides with the info separator
	hostname = strings.ReplaceAll(hostname, "/", `\057`)
	hostname = strings.ReplaceAll(hostname, ":", `\072`)
	hostname = strings.ReplaceAll(hostname, "\x00", "")
	return hostname
}

// validateID rejects identifiers that would resolve outside new/ or cur/
// or be misread as carrying flags.
func validateID(op, id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsRune(id, '/') || strings.ContainsRune(id, filepath.Separator) ||
		strings.Contains(id, infoSeparator) {
		return mserrors.E(mserrors.KindInvalidArgument, op, id, mserrors.ErrInvalidID)
	}
	return nil
}
