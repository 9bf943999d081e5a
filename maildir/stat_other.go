//go:build !unix

package maildir

import "os"

// fileID returns the size of an open file. Device and inode numbers are not
// exposed on this platform and are reported as zero.
func fileID(f *os.File) (dev, ino uint64, size int64, err error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, 0, 0, err
	}
	return 0, 0, fi.Size(), nil
}
