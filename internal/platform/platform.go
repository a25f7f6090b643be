package platform

import (
	"context"
	"errors"
	"os"
)

// ErrXattrUnsupported is returned by the xattr helpers on platforms without
// extended attribute syscalls.
var ErrXattrUnsupported = errors.New("extended attributes not supported on this platform")

// Finder flag bits kept in the Finder info extended attribute.
const (
	FinderFlagExtensionHidden uint16 = 0x0010
	FinderFlagStationery      uint16 = 0x0800
)

// CopyMethod names the kernel path that moved a file's bytes.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // linux copy_file_range(2)
	Sendfile                 // linux sendfile(2)
	Clonefile                // darwin clonefile(2)
)

var copyMethodNames = [...]string{
	ReadWrite:     "read_write",
	CopyFileRange: "copy_file_range",
	Sendfile:      "sendfile",
	Clonefile:     "clonefile",
}

func (m CopyMethod) String() string {
	if m < 0 || int(m) >= len(copyMethodNames) {
		return "unknown"
	}
	return copyMethodNames[m]
}

// CopyResult reports how many bytes reached the destination and how.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes a whole-file copy into an open destination.
// Copying stops early, with the context's error, once Ctx is done; it is
// checked between chunks, so a nil Ctx never cancels.
type CopyFileParams struct {
	Ctx     context.Context
	SrcPath string
	DstFd   *os.File
	SrcSize int64
}

func (p CopyFileParams) canceled() error {
	if p.Ctx == nil {
		return nil
	}
	return p.Ctx.Err()
}
