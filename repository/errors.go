// Package repository persists tasks, check-ins, relations and notification logs with gorm.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/careping/errcode"
)

// translate maps driver-neutral gorm errors onto the engine's reason codes.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errcode.ErrDuplicate
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errcode.ErrNotFound
	}
	return err
}
