package meta

import (
	"fmt"
	"strings"

	"howett.net/plist"
)

// TagCodec stores a tag list in a single extended attribute.
type TagCodec interface {
	Key() string
	Decode(data []byte) ([]string, error)
	Encode(tags []string) ([]byte, error)
}

// PlistTags is the Finder encoding: a binary property list of strings.
type PlistTags struct{}

func (PlistTags) Key() string { return "com.apple.metadata:_kMDItemUserTags" }

func (PlistTags) Decode(data []byte) ([]string, error) {
	var tags []string
	if _, err := plist.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("decode tags plist: %w", err)
	}
	return tags, nil
}

func (PlistTags) Encode(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := plist.Marshal(tags, plist.BinaryFormat)
	if err != nil {
		return nil, fmt.Errorf("encode tags plist: %w", err)
	}
	return data, nil
}

// XDGTags is the comma-separated encoding used by Linux file managers.
type XDGTags struct{}

func (XDGTags) Key() string { return "user.xdg.tags" }

func (XDGTags) Decode(data []byte) ([]string, error) {
	var tags []string
	for _, t := range strings.Split(string(data), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (XDGTags) Encode(tags []string) ([]byte, error) {
	for _, t := range tags {
		if strings.Contains(t, ",") {
			return nil, fmt.Errorf("tag %q contains a comma", t)
		}
	}
	return []byte(strings.Join(tags, ",")), nil
}
