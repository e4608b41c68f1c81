// Package safeio provides checksummed, atomic file operations for moving
// records between pipeline zones. Every write lands in a temp file in the
// destination directory and is renamed into place, so readers never observe
// a partially written file.
package safeio

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/emberline/curator/errors"
)

// checksumChunkSize is the read buffer used when hashing files. Kept small
// so large dumps stream without memory pressure.
const checksumChunkSize = 8192

// diskHeadroomFactor is the multiplier applied to a file's size when
// checking free space before a copy. 1.1 leaves room for the temp file
// plus filesystem metadata.
const diskHeadroomFactor = 1.1

// Checksum computes the SHA-256 hex digest of a file, reading in 8KB chunks.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s for checksum", path)
	}
	defer f.Close()

	return ChecksumReader(f)
}

// ChecksumReader computes the SHA-256 hex digest of everything in r.
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", errors.Wrap(err, "failed to read data for checksum")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumBytes returns the SHA-256 hex digest of data.
func ChecksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumString returns the SHA-256 hex digest of s.
func ChecksumString(s string) string {
	return ChecksumBytes([]byte(s))
}

// VerifyChecksum recomputes the checksum of path and compares it to want.
// Returns ErrChecksumMismatch with both digests attached when they differ.
func VerifyChecksum(path, want string) error {
	got, err := Checksum(path)
	if err != nil {
		return err
	}
	if got != want {
		return errors.Wrapf(errors.ErrChecksumMismatch, "%s: expected %s, got %s", path, want, got)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename. The destination directory is created if missing.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to rename %s to %s", tmpName, path)
	}
	committed = true
	return syncDir(dir)
}

// CopyFileAtomic streams src into a temp file beside dst and renames it into
// place once the copy is complete. Returns the number of bytes copied and
// the SHA-256 hex digest of the copied data. The source file is left intact.
func CopyFileAtomic(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", errors.Wrapf(err, "failed to open source %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, "", errors.Wrapf(err, "failed to stat source %s", src)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, "", errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".tmp.*")
	if err != nil {
		return 0, "", errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	// Hash while copying so the destination never needs a second read.
	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err != nil {
		return 0, "", errors.Wrapf(err, "failed to copy %s", src)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return 0, "", errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		return 0, "", errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, "", errors.Wrapf(err, "failed to rename %s to %s", tmpName, dst)
	}
	committed = true
	if err := syncDir(dir); err != nil {
		return written, "", err
	}
	return written, hex.EncodeToString(h.Sum(nil)), nil
}

// BackupPath returns the timestamped location inside backupDir where a
// backup of path would be written.
func BackupPath(path, backupDir string) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return filepath.Join(backupDir, filepath.Base(path)+"."+stamp+".bak")
}

// BackupFile copies path into backupDir under a timestamped name and returns
// the backup location. A missing source is not an error; the empty string is
// returned so callers can skip restore logic.
func BackupFile(path, backupDir string) (string, error) {
	if !FileExists(path) {
		return "", nil
	}
	dst := BackupPath(path, backupDir)
	if _, _, err := CopyFileAtomic(path, dst); err != nil {
		return "", errors.Wrapf(err, "failed to back up %s", path)
	}
	return dst, nil
}

// ValidateSourceFile checks that path names a readable, nonzero regular file.
func ValidateSourceFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrNotFound, "source file %s", path)
		}
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.Newf("source %s is not a regular file", path)
	}
	if info.Size() == 0 {
		return errors.Newf("source file %s is empty", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "source file %s is not readable", path)
	}
	_ = f.Close()
	return nil
}

// CheckDiskSpace verifies that the filesystem holding path has room for
// required bytes plus headroom. Returns ErrInsufficientSpace when it does
// not. The path must exist; pass the destination directory, not the file.
func CheckDiskSpace(path string, required uint64) error {
	usage, err := disk.Usage(path)
	if err != nil {
		return errors.Wrapf(err, "failed to get disk usage for %s", path)
	}

	needed := uint64(float64(required) * diskHeadroomFactor)
	if usage.Free < needed {
		return errors.Wrapf(errors.ErrInsufficientSpace,
			"%s: need %d bytes (with headroom), have %d free", path, needed, usage.Free)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to open directory %s for sync", dir)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync directory %s", dir)
	}
	return nil
}
