package platform

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// rwBufferSize is the pooled buffer used by the read/write path.
	rwBufferSize = 1 << 20
	// chunkSize bounds a single kernel copy call so cancellation is seen
	// between chunks of a large file.
	chunkSize = 8 << 20
)

var rwBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, rwBufferSize)
		return &b
	},
}

// copyReadWrite is the portable path: pread from the source, pwrite to the
// destination, one pooled buffer at a time. It stops at end of file even if
// the source turned out shorter than SrcSize.
func copyReadWrite(params CopyFileParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	bufp := rwBuffers.Get().(*[]byte)
	defer rwBuffers.Put(bufp)
	buf := *bufp

	res := CopyResult{Method: ReadWrite}
	srcFd := int(src.Fd())
	dstFd := int(params.DstFd.Fd())

	for res.BytesWritten < params.SrcSize {
		if err := params.canceled(); err != nil {
			return res, err
		}
		want := int(min(params.SrcSize-res.BytesWritten, rwBufferSize))
		n, err := unix.Pread(srcFd, buf[:want], res.BytesWritten)
		if err != nil {
			return res, err
		}
		if n == 0 {
			break
		}
		for off := 0; off < n; {
			w, err := unix.Pwrite(dstFd, buf[off:n], res.BytesWritten+int64(off))
			if err != nil {
				return res, err
			}
			off += w
		}
		res.BytesWritten += int64(n)
	}
	return res, nil
}

// fallbackErr reports whether a kernel copy path refused the file outright
// and the next, slower path should be tried.
func fallbackErr(err error) bool {
	return errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP)
}
