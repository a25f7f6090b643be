//go:build !linux && !darwin

package platform

import "errors"

func renameNoReplace(_, _ string) error {
	return errors.ErrUnsupported
}
