package usecase

import "errors"

var (
	errContentRequired     = errors.New("content is required")
	errProcedureIDRequired = errors.New("procedure id is required")
	errFeedbackIDRequired  = errors.New("feedback id is required")
	errTokenRequired       = errors.New("auth token is required")
)
