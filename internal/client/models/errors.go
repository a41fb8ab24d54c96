package models

import "errors"

// ErrInvalid is returned by Validate for records that must not be written.
var ErrInvalid = errors.New("invalid record")
