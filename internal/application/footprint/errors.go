package footprint

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNoSourceData          = errors.New("no metrics or ingestion activity for the period")
	ErrFactorResolution      = errors.New("no emission factors could be resolved")
	ErrSnapshotNotFound      = errors.New("footprint snapshot not found")
	ErrCalculationInProgress = errors.New("another calculation for this period is being saved")
	ErrInvalidMapping        = errors.New("invalid activity mapping")
)
