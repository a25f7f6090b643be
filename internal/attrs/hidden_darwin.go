//go:build darwin

package attrs

import "github.com/bamsammich/ferry/internal/platform"

func extensionHidden(path string) (bool, error) {
	flags, err := platform.FinderFlags(path)
	if err != nil {
		return false, err
	}
	return flags&platform.FinderFlagExtensionHidden != 0, nil
}

func setExtensionHidden(path string, hidden bool) error {
	cur, err := extensionHidden(path)
	if err != nil || cur == hidden {
		return err
	}
	return platform.SetFinderFlag(path, platform.FinderFlagExtensionHidden, hidden)
}
