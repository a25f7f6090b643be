//go:build !darwin

package platform

// Clone is only implemented on macOS; elsewhere it always asks the caller to
// fall back to CopyFile.
func Clone(_, _ string) (bool, error) {
	return false, nil
}
