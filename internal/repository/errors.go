package repository

import "errors"

var ErrConflict = errors.New("conflict")
