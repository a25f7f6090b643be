//go:build darwin

package meta

// DefaultPrivate lists attribute prefixes owned by the system. They are
// never compared or copied.
var DefaultPrivate = []string{
	"com.apple.quarantine",
	"com.apple.rootless",
	"com.apple.provenance",
	"com.apple.lastuseddate#PS",
}

func defaultTagCodec() TagCodec { return PlistTags{} }
