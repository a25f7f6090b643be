//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile copies the whole source into params.DstFd. copy_file_range is
// tried first, then sendfile, then plain read/write; a path is abandoned
// only if it fails before moving any bytes.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.SrcSize)

	for _, try := range []func(CopyFileParams) (CopyResult, error){copyFileRange, copySendfile} {
		res, err := try(params)
		if err == nil || res.BytesWritten > 0 || !fallbackErr(err) {
			return res, err
		}
	}
	return copyReadWrite(params)
}

func copyFileRange(params CopyFileParams) (CopyResult, error) {
	return kernelCopy(params, CopyFileRange, func(src, dst int, off *int64, n int) (int, error) {
		woff := *off
		return unix.CopyFileRange(src, off, dst, &woff, n, 0)
	})
}

func copySendfile(params CopyFileParams) (CopyResult, error) {
	return kernelCopy(params, Sendfile, func(src, dst int, off *int64, n int) (int, error) {
		return unix.Sendfile(dst, src, off, n)
	})
}

// kernelCopy drives an offset-advancing copy syscall in chunks, checking
// for cancellation in between. The destination is written sequentially
// from offset zero.
func kernelCopy(params CopyFileParams, method CopyMethod, step func(src, dst int, off *int64, n int) (int, error)) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	res := CopyResult{Method: method}
	var off int64
	for off < params.SrcSize {
		if err := params.canceled(); err != nil {
			return res, err
		}
		n, err := step(int(src.Fd()), int(params.DstFd.Fd()), &off, int(min(params.SrcSize-off, chunkSize)))
		if err != nil {
			return res, err
		}
		if n == 0 {
			break
		}
		res.BytesWritten = off
	}
	return res, nil
}

// preallocate reserves space for the whole file up front. Filesystems
// without fallocate simply skip it.
func preallocate(fd *os.File, size int64) {
	if size <= 0 {
		return
	}
	_ = unix.Fallocate(int(fd.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, size) //nolint:gosec // G115: fd fits in int
}
