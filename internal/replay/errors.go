package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrPeriodNotFound is returned when a replay request names an unknown period.
	ErrPeriodNotFound = errors.New("period not found")

	// ErrNoDataset is returned when an operation needs a dataset and none is loaded.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrInvalidStrategy is returned in strict mode for strategies that fail validation.
	ErrInvalidStrategy = errors.New("invalid strategy")
)

// errDatasetReplaced reports that a Load swapped the dataset while a run or
// replay was using the previous one.
var errDatasetReplaced = fmt.Errorf("%w: dataset replaced during run", ErrNoDataset)
