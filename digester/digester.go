package digester

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SidecarExt is appended to a document path to name its
// digest file.
const SidecarExt = ".sha256"

// Sum computes the SHA-256 hex digest of the file at path.
func Sum(path string) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := os.Open(path) //nolint:gosec // path is caller-provided by design
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// WriteSidecar computes the digest of path and stores it in
// path+SidecarExt. It returns the digest.
func WriteSidecar(path string) (string, error) {
	const errCtx = "writing digest sidecar"

	digest, err := Sum(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(
		path+SidecarExt, []byte(digest+"\n"), 0o644, //nolint:gosec // public checksum
	); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return digest, nil
}

// Verify compares the digest of path against its sidecar.
// A missing sidecar reports false without error.
func Verify(path string) (bool, error) {
	const errCtx = "verifying digest"

	stored, err := os.ReadFile(path + SidecarExt) //nolint:gosec // path is caller-provided by design
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	calc, err := Sum(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return calc == strings.TrimSpace(string(stored)), nil
}
