package engine

import (
	"fmt"
	"math"

	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/snapshot"
)

// Range is a half-open score interval [Min, Max).
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SESWeights are the weights of each socioeconomic component in the score.
type SESWeights struct {
	Income     float64 `yaml:"income"`
	Occupation float64 `yaml:"occupation"`
	Education  float64 `yaml:"education"`
}

// SESCategories are the score ranges of each socioeconomic category.
// The upper bound of High is inclusive.
type SESCategories struct {
	Low    Range `yaml:"low"`
	Middle Range `yaml:"middle"`
	High   Range `yaml:"high"`
}

// SESConfig configures socioeconomic status scoring.
type SESConfig struct {
	Weights    SESWeights    `yaml:"weighting"`
	Categories SESCategories `yaml:"categories"`
}

// Score returns the weighted socioeconomic score of s.
func (c SESConfig) Score(s snapshot.SES) float64 {
	return s.Income*c.Weights.Income +
		s.Occupation*c.Weights.Occupation +
		s.Education*c.Weights.Education
}

// Range returns the score range of a category.
func (c SESConfig) Range(level ast.SESLevel) (Range, bool) {
	switch level {
	case ast.SESLow:
		return c.Categories.Low, true
	case ast.SESMiddle:
		return c.Categories.Middle, true
	case ast.SESHigh:
		return c.Categories.High, true
	default:
		return Range{}, false
	}
}

// Config contains configuration for the condition evaluator. It is copied
// when the evaluator is created; later changes have no effect on it.
type Config struct {
	// SES configures socioeconomic status scoring for SESCategory conditions.
	// Default: income 0.2, education 0.7, occupation 0.1;
	// low [0, 0.33), middle [0.33, 0.66), high [0.66, 1.0].
	SES SESConfig `yaml:"socioeconomic_status"`
}

// DefaultConfig returns the default evaluator configuration.
func DefaultConfig() *Config {
	return &Config{
		SES: SESConfig{
			Weights: SESWeights{
				Income:     0.2,
				Occupation: 0.1,
				Education:  0.7,
			},
			Categories: SESCategories{
				Low:    Range{Min: 0, Max: 0.33},
				Middle: Range{Min: 0.33, Max: 0.66},
				High:   Range{Min: 0.66, Max: 1.0},
			},
		},
	}
}

// Validate validates the evaluator configuration.
func (c *Config) Validate() error {
	w := c.SES.Weights
	if w.Income < 0 || w.Occupation < 0 || w.Education < 0 {
		return fmt.Errorf("%w: socioeconomic weights must not be negative", ErrInvalidConfig)
	}
	if sum := w.Income + w.Occupation + w.Education; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: socioeconomic weights must sum to 1, got %g", ErrInvalidConfig, sum)
	}

	for _, level := range []ast.SESLevel{ast.SESLow, ast.SESMiddle, ast.SESHigh} {
		r, _ := c.SES.Range(level)
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s socioeconomic range has min %g above max %g",
				ErrInvalidConfig, level, r.Min, r.Max)
		}
	}

	return nil
}

// WithSESWeights sets the socioeconomic component weights.
func (c *Config) WithSESWeights(income, occupation, education float64) *Config {
	c.SES.Weights = SESWeights{Income: income, Occupation: occupation, Education: education}
	return c
}

// WithSESCategories sets the socioeconomic category ranges.
func (c *Config) WithSESCategories(low, middle, high Range) *Config {
	c.SES.Categories = SESCategories{Low: low, Middle: middle, High: high}
	return c
}
