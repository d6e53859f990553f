package common

import "errors"

// ErrModuleDisabled is returned by Guard while a module is switched off.
var ErrModuleDisabled = errors.New("disabled")

type EnabledView interface {
	IsEnabled(module string) bool
}

func Guard(v EnabledView, module string) error {
	if v == nil || module == "" {
		return nil
	}
	if !v.IsEnabled(module) {
		return ErrModuleDisabled
	}
	return nil
}
