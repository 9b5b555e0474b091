package core

import "errors"

// Sentinel errors returned by Store methods. Handlers translate these
// into the matching core.Failure / result code.
var (
	ErrNameExists       = errors.New("target name already exists in database")
	ErrTargetNotFound   = errors.New("target not found")
	ErrTargetProcessing = errors.New("target status is not success")
)
