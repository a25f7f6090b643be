//go:build darwin

package platform

import "golang.org/x/sys/unix"

// errNoAttr is what getxattr/removexattr return for an unset attribute.
const errNoAttr = unix.ENOATTR

// FinderInfoKey is the extended attribute holding the 32-byte Finder info.
const FinderInfoKey = "com.apple.FinderInfo"
