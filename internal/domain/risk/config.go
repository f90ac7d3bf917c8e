package risk

// Config controls training.
type Config struct {
	LearningRate    float64 `json:"learning_rate"`
	MaxIterations   int     `json:"max_iterations"`
	Tolerance       float64 `json:"tolerance"`
	L2              float64 `json:"l2"`
	ValidationRatio float64 `json:"validation_ratio"`
	Seed            int64   `json:"seed"`
	MinSamples      int     `json:"min_samples"`
	Threshold       float64 `json:"threshold"`
}

// DefaultConfig returns the training defaults: an 80/20 split seeded with 42.
func DefaultConfig() Config {
	return Config{
		LearningRate:    0.1,
		MaxIterations:   2000,
		Tolerance:       1e-7,
		L2:              0.01,
		ValidationRatio: 0.2,
		Seed:            42,
		MinSamples:      10,
		Threshold:       0.5,
	}
}

// withDefaults fills zero or out-of-range fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance < 0 {
		c.Tolerance = d.Tolerance
	}
	if c.L2 < 0 {
		c.L2 = d.L2
	}
	if c.ValidationRatio < 0 || c.ValidationRatio >= 1 {
		c.ValidationRatio = d.ValidationRatio
	}
	if c.MinSamples < 2 {
		c.MinSamples = 2
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		c.Threshold = d.Threshold
	}
	return c
}
