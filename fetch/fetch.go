// Package fetch resolves snapshot sources to local paths. Remote
// sources (http, git, archives) are downloaded into a cache directory
// with hashicorp/go-getter; local paths pass through untouched. A
// `checksum=` query on the source URL is verified by go-getter after
// download.
package fetch

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/sym"
)

// Fetch resolves src to a local path, downloading into destDir when the
// source is remote. The returned path is a file or directory ready to
// feed the extraction engine.
func Fetch(ctx context.Context, src, destDir string, logger *zap.SugaredLogger) (string, error) {
	if logger == nil {
		logger = zap.S()
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}

	detected, err := getter.Detect(src, pwd, getter.Detectors)
	if err != nil {
		return "", errors.Wrapf(err, "failed to detect source type for %s", src)
	}

	logger.Debugw("Detected snapshot source",
		"sym", sym.Fetch,
		"input", src,
		"detected", detected,
	)

	parsed, err := url.Parse(detected)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse detected source %s", detected)
	}

	if parsed.Scheme == "" || parsed.Scheme == "file" {
		return resolveLocal(src, parsed, pwd)
	}

	return download(ctx, src, detected, destDir, logger)
}

// IsRemote reports whether input names a remote source that Fetch would
// download rather than resolve locally.
func IsRemote(input string) bool {
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(input, pwd, getter.Detectors)
	if err != nil {
		return false
	}
	parsed, err := url.Parse(detected)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Scheme != "file"
}

// resolveLocal normalizes a local input to an absolute path and verifies
// it exists. Nothing is copied; the caller reads in place.
func resolveLocal(input string, parsed *url.URL, pwd string) (string, error) {
	localPath := input
	if parsed.Scheme == "file" {
		localPath = parsed.Path
	}

	if strings.HasPrefix(localPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to expand home directory")
		}
		localPath = filepath.Join(home, localPath[2:])
	}
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(pwd, localPath)
	}

	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(errors.ErrNotFound, "local snapshot %s", localPath)
		}
		return "", errors.Wrapf(err, "failed to stat %s", localPath)
	}
	return localPath, nil
}

func download(ctx context.Context, input, detected, destDir string, logger *zap.SugaredLogger) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create cache directory %s", destDir)
	}

	dst := filepath.Join(destDir, snapshotName(detected))

	logger.Infow("Fetching snapshot",
		"sym", sym.Fetch,
		"input", input,
		"detected", detected,
		"dest", dst,
	)

	client := &getter.Client{
		Ctx:     ctx,
		Src:     detected,
		Dst:     dst,
		Mode:    getter.ClientModeAny,
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		_ = os.RemoveAll(dst)
		return "", errors.Wrapf(err, "failed to fetch %s", input)
	}

	logger.Infow("Fetch completed",
		"sym", sym.Fetch,
		"dest", dst,
	)
	return dst, nil
}

// snapshotName derives a cache entry name from the final path segment of
// the detected URL, dropping the query so `checksum=` never lands in a
// filename.
func snapshotName(detected string) string {
	trimmed := detected
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimSuffix(trimmed, "/")

	name := path.Base(trimmed)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		// Strip forced-getter prefixes like git:: that survive Base.
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")

	replacer := strings.NewReplacer(
		":", "-",
		"@", "-",
		" ", "-",
	)
	name = replacer.Replace(name)

	if len(name) > 64 {
		name = name[:64]
	}
	if name == "" || name == "." || name == "/" {
		name = "snapshot"
	}
	return name
}
