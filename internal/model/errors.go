package model

import "errors"

var (
	// ErrFetchFailed marks a non-200 response or transport error from the market-data API.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrStorageFailed marks an upload or download error against object storage.
	ErrStorageFailed = errors.New("storage failed")
	// ErrInvalidArgument marks a bad window, horizon, threshold or series.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientData marks a series too short for the requested computation.
	ErrInsufficientData = errors.New("insufficient data")
)
