//go:build !linux && !darwin

package platform

// CopyFile uses the portable read/write path.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(params)
}
