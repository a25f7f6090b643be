//go:build !darwin

package meta

// DefaultPrivate lists attribute prefixes owned by the system. They are
// never compared or copied.
var DefaultPrivate = []string{
	"security.",
	"system.",
	"trusted.",
}

func defaultTagCodec() TagCodec { return XDGTags{} }
