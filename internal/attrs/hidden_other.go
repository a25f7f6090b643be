//go:build !darwin

package attrs

// The extension-hidden flag only means something to the macOS Finder.
func extensionHidden(_ string) (bool, error) { return false, nil }

func setExtensionHidden(_ string, _ bool) error { return nil }
