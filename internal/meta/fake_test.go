package meta

import (
	"maps"
	"slices"
)

// fakeProvider keeps metadata in memory, keyed by path.
type fakeProvider struct {
	sets      map[string]Set
	readErrs  map[string]error
	replaced  []string
	tagWrites int
	padWrites int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sets: map[string]Set{}, readErrs: map[string]error{}}
}

func (f *fakeProvider) Read(path string) (Set, error) {
	if err := f.readErrs[path]; err != nil {
		return Set{}, err
	}
	return f.sets[path], nil
}

func (f *fakeProvider) Replace(path string, s Set) error {
	f.replaced = append(f.replaced, path)
	cur := f.sets[path]
	cur.Attrs = maps.Clone(s.Attrs)
	f.sets[path] = cur
	return nil
}

func (f *fakeProvider) SetTags(path string, tags []string) error {
	f.tagWrites++
	cur := f.sets[path]
	cur.Tags = slices.Clone(tags)
	f.sets[path] = cur
	return nil
}

func (f *fakeProvider) SetStationery(path string, on bool) error {
	f.padWrites++
	cur := f.sets[path]
	cur.Stationery = on
	f.sets[path] = cur
	return nil
}
