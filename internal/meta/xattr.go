package meta

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bamsammich/ferry/internal/platform"
)

// XattrProvider implements Provider over extended attributes.
type XattrProvider struct {
	// Private lists attribute name prefixes to ignore. Nil means
	// DefaultPrivate.
	Private []string
	// Tags defaults to the host's native tag encoding.
	Tags TagCodec
}

func (p *XattrProvider) Read(path string) (Set, error) {
	names, err := platform.ListXattrs(path)
	if err != nil {
		return Set{}, err
	}

	s := Set{Attrs: make(map[string][]byte, len(names))}
	for _, name := range names {
		if p.private(name) {
			continue
		}
		val, err := platform.GetXattr(path, name)
		if err != nil {
			// Removed between list and get.
			if platform.IsNoAttr(err) {
				continue
			}
			return Set{}, err
		}
		s.Attrs[name] = val
	}

	if raw, ok := s.Attrs[p.codec().Key()]; ok {
		tags, err := p.codec().Decode(raw)
		if err != nil {
			return Set{}, fmt.Errorf("%s: %w", path, err)
		}
		s.Tags = tags
	}
	if info, ok := s.Attrs[platform.FinderInfoKey]; ok && len(info) >= 10 {
		s.Stationery = binary.BigEndian.Uint16(info[8:])&platform.FinderFlagStationery != 0
	}
	return s, nil
}

func (p *XattrProvider) Replace(path string, s Set) error {
	names, err := platform.ListXattrs(path)
	if err != nil {
		return err
	}
	for _, name := range names {
		if p.private(name) {
			continue
		}
		if _, keep := s.Attrs[name]; keep {
			continue
		}
		if err := platform.RemoveXattr(path, name); err != nil {
			return err
		}
	}
	for name, val := range s.Attrs {
		if err := platform.SetXattr(path, name, val); err != nil {
			return err
		}
	}
	return nil
}

func (p *XattrProvider) SetTags(path string, tags []string) error {
	key := p.codec().Key()
	if len(tags) == 0 {
		return platform.RemoveXattr(path, key)
	}
	data, err := p.codec().Encode(tags)
	if err != nil {
		return err
	}
	return platform.SetXattr(path, key, data)
}

func (p *XattrProvider) SetStationery(path string, on bool) error {
	flags, err := platform.FinderFlags(path)
	if err != nil {
		return err
	}
	if (flags&platform.FinderFlagStationery != 0) == on {
		return nil
	}
	return platform.SetFinderFlag(path, platform.FinderFlagStationery, on)
}

func (p *XattrProvider) private(name string) bool {
	prefixes := p.Private
	if prefixes == nil {
		prefixes = DefaultPrivate
	}
	for _, pre := range prefixes {
		if strings.HasPrefix(name, pre) {
			return true
		}
	}
	return false
}

func (p *XattrProvider) codec() TagCodec {
	if p.Tags != nil {
		return p.Tags
	}
	return defaultTagCodec()
}
