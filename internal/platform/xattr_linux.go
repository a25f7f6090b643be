//go:build linux

package platform

import "golang.org/x/sys/unix"

// errNoAttr is what getxattr/removexattr return for an unset attribute.
const errNoAttr = unix.ENODATA

// FinderInfoKey is where Finder info is kept on filesystems that only allow
// user-namespace attributes.
const FinderInfoKey = "user.com.apple.FinderInfo"
