// Package meta reconciles extended metadata (xattrs, Finder tags and flags)
// from source entries onto their copies.
package meta

import (
	"bytes"
	"slices"

	"github.com/bamsammich/ferry/internal/platform"
)

// ErrUnsupported is returned when the host cannot store extended metadata.
var ErrUnsupported = platform.ErrXattrUnsupported

// Set is the extended metadata of one entry. Attrs holds every attribute
// that is not private to the operating system; Tags and Stationery are
// decoded views of it that need their own write calls to stick.
type Set struct {
	Attrs      map[string][]byte
	Tags       []string
	Stationery bool
}

// Equal reports whether two sets hold the same metadata.
func (s Set) Equal(o Set) bool {
	if len(s.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range s.Attrs {
		ov, ok := o.Attrs[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return slices.Equal(s.Tags, o.Tags) && s.Stationery == o.Stationery
}

// Provider reads and writes extended metadata.
type Provider interface {
	Read(path string) (Set, error)
	// Replace makes the non-private attributes of path exactly s.Attrs,
	// removing any that s does not hold.
	Replace(path string, s Set) error
	SetTags(path string, tags []string) error
	SetStationery(path string, on bool) error
}
