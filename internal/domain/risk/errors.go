package risk

import "errors"

// Training failures. Both also match model.ErrTraining.
var (
	ErrInsufficientSamples = errors.New("insufficient training samples")
	ErrSingleClass         = errors.New("training data has a single class")
)
