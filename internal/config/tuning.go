package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for detector tuning.
// Every field is optional; omitted fields fall back to the built-in
// defaults through the Get* accessors, so partial configs are safe.
type TuningConfig struct {
	// Adaptive threshold sweep
	AdaptiveThreshWinSizeMin  *int     `json:"adaptive_thresh_win_size_min,omitempty"`
	AdaptiveThreshWinSizeMax  *int     `json:"adaptive_thresh_win_size_max,omitempty"`
	AdaptiveThreshWinSizeStep *int     `json:"adaptive_thresh_win_size_step,omitempty"`
	AdaptiveThreshConstant    *float64 `json:"adaptive_thresh_constant,omitempty"`

	// Candidate geometry filters
	MinMarkerPerimeterRate      *float64 `json:"min_marker_perimeter_rate,omitempty"`
	MaxMarkerPerimeterRate      *float64 `json:"max_marker_perimeter_rate,omitempty"`
	PolygonalApproxAccuracyRate *float64 `json:"polygonal_approx_accuracy_rate,omitempty"`
	MinCornerDistanceRate       *float64 `json:"min_corner_distance_rate,omitempty"`
	MinDistanceToBorder         *int     `json:"min_distance_to_border,omitempty"`
	MinMarkerDistanceRate       *float64 `json:"min_marker_distance_rate,omitempty"`

	// Decode stage
	MarkerBorderBits                      *int     `json:"marker_border_bits,omitempty"`
	PerspectiveRemovePixelPerCell         *int     `json:"perspective_remove_pixel_per_cell,omitempty"`
	PerspectiveRemoveIgnoredMarginPerCell *float64 `json:"perspective_remove_ignored_margin_per_cell,omitempty"`
	MaxErroneousBitsInBorderRate          *float64 `json:"max_erroneous_bits_in_border_rate,omitempty"`
	ErrorCorrectionRate                   *float64 `json:"error_correction_rate,omitempty"`
	MinOtsuStdDev                         *float64 `json:"min_otsu_std_dev,omitempty"`

	// Corner refinement (optional)
	CornerRefinementEnabled       *bool    `json:"corner_refinement_enabled,omitempty"`
	CornerRefinementWinSize       *int     `json:"corner_refinement_win_size,omitempty"`
	CornerRefinementMaxIterations *int     `json:"corner_refinement_max_iterations,omitempty"`
	CornerRefinementMinAccuracy   *float64 `json:"corner_refinement_min_accuracy,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into an empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/ or cmd tools
		"../../../" + DefaultConfigPath,    // from internal/fiducial/dict
		"../../../../" + DefaultConfigPath, // from internal/fiducial/storage/sqlite
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.AdaptiveThreshWinSizeMin != nil && *c.AdaptiveThreshWinSizeMin < 3 {
		return fmt.Errorf("adaptive_thresh_win_size_min must be at least 3, got %d", *c.AdaptiveThreshWinSizeMin)
	}
	if c.AdaptiveThreshWinSizeStep != nil && *c.AdaptiveThreshWinSizeStep < 1 {
		return fmt.Errorf("adaptive_thresh_win_size_step must be at least 1, got %d", *c.AdaptiveThreshWinSizeStep)
	}
	if c.MinMarkerPerimeterRate != nil && *c.MinMarkerPerimeterRate <= 0 {
		return fmt.Errorf("min_marker_perimeter_rate must be positive, got %f", *c.MinMarkerPerimeterRate)
	}
	if c.PerspectiveRemoveIgnoredMarginPerCell != nil {
		if v := *c.PerspectiveRemoveIgnoredMarginPerCell; v < 0 || v >= 0.5 {
			return fmt.Errorf("perspective_remove_ignored_margin_per_cell must be in [0, 0.5), got %f", v)
		}
	}
	if c.ErrorCorrectionRate != nil {
		if v := *c.ErrorCorrectionRate; v < 0 || v > 1 {
			return fmt.Errorf("error_correction_rate must be between 0 and 1, got %f", v)
		}
	}
	return nil
}

// GetAdaptiveThreshWinSizeMin returns the adaptive_thresh_win_size_min value or the default.
func (c *TuningConfig) GetAdaptiveThreshWinSizeMin() int {
	if c.AdaptiveThreshWinSizeMin == nil {
		return 3 // default
	}
	return *c.AdaptiveThreshWinSizeMin
}

// GetAdaptiveThreshWinSizeMax returns the adaptive_thresh_win_size_max value or the default.
func (c *TuningConfig) GetAdaptiveThreshWinSizeMax() int {
	if c.AdaptiveThreshWinSizeMax == nil {
		return 23 // default
	}
	return *c.AdaptiveThreshWinSizeMax
}

// GetAdaptiveThreshWinSizeStep returns the adaptive_thresh_win_size_step value or the default.
func (c *TuningConfig) GetAdaptiveThreshWinSizeStep() int {
	if c.AdaptiveThreshWinSizeStep == nil {
		return 10 // default
	}
	return *c.AdaptiveThreshWinSizeStep
}

// GetAdaptiveThreshConstant returns the adaptive_thresh_constant value or the default.
func (c *TuningConfig) GetAdaptiveThreshConstant() float64 {
	if c.AdaptiveThreshConstant == nil {
		return 7 // default
	}
	return *c.AdaptiveThreshConstant
}

// GetMinMarkerPerimeterRate returns the min_marker_perimeter_rate value or the default.
func (c *TuningConfig) GetMinMarkerPerimeterRate() float64 {
	if c.MinMarkerPerimeterRate == nil {
		return 0.03
	}
	return *c.MinMarkerPerimeterRate
}

// GetMaxMarkerPerimeterRate returns the max_marker_perimeter_rate value or the default.
func (c *TuningConfig) GetMaxMarkerPerimeterRate() float64 {
	if c.MaxMarkerPerimeterRate == nil {
		return 4.0
	}
	return *c.MaxMarkerPerimeterRate
}

// GetPolygonalApproxAccuracyRate returns the polygonal_approx_accuracy_rate value or the default.
func (c *TuningConfig) GetPolygonalApproxAccuracyRate() float64 {
	if c.PolygonalApproxAccuracyRate == nil {
		return 0.03
	}
	return *c.PolygonalApproxAccuracyRate
}

// GetMinCornerDistanceRate returns the min_corner_distance_rate value or the default.
func (c *TuningConfig) GetMinCornerDistanceRate() float64 {
	if c.MinCornerDistanceRate == nil {
		return 0.05
	}
	return *c.MinCornerDistanceRate
}

// GetMinDistanceToBorder returns the min_distance_to_border value or the default.
func (c *TuningConfig) GetMinDistanceToBorder() int {
	if c.MinDistanceToBorder == nil {
		return 3
	}
	return *c.MinDistanceToBorder
}

// GetMinMarkerDistanceRate returns the min_marker_distance_rate value or the default.
func (c *TuningConfig) GetMinMarkerDistanceRate() float64 {
	if c.MinMarkerDistanceRate == nil {
		return 0.05
	}
	return *c.MinMarkerDistanceRate
}

// GetMarkerBorderBits returns the marker_border_bits value or the default.
func (c *TuningConfig) GetMarkerBorderBits() int {
	if c.MarkerBorderBits == nil {
		return 1
	}
	return *c.MarkerBorderBits
}

// GetPerspectiveRemovePixelPerCell returns the perspective_remove_pixel_per_cell value or the default.
func (c *TuningConfig) GetPerspectiveRemovePixelPerCell() int {
	if c.PerspectiveRemovePixelPerCell == nil {
		return 4
	}
	return *c.PerspectiveRemovePixelPerCell
}

// GetPerspectiveRemoveIgnoredMarginPerCell returns the perspective_remove_ignored_margin_per_cell value or the default.
func (c *TuningConfig) GetPerspectiveRemoveIgnoredMarginPerCell() float64 {
	if c.PerspectiveRemoveIgnoredMarginPerCell == nil {
		return 0.13
	}
	return *c.PerspectiveRemoveIgnoredMarginPerCell
}

// GetMaxErroneousBitsInBorderRate returns the max_erroneous_bits_in_border_rate value or the default.
func (c *TuningConfig) GetMaxErroneousBitsInBorderRate() float64 {
	if c.MaxErroneousBitsInBorderRate == nil {
		return 0.35
	}
	return *c.MaxErroneousBitsInBorderRate
}

// GetErrorCorrectionRate returns the error_correction_rate value or the default.
func (c *TuningConfig) GetErrorCorrectionRate() float64 {
	if c.ErrorCorrectionRate == nil {
		return 0.6
	}
	return *c.ErrorCorrectionRate
}

// GetMinOtsuStdDev returns the min_otsu_std_dev value or the default.
func (c *TuningConfig) GetMinOtsuStdDev() float64 {
	if c.MinOtsuStdDev == nil {
		return 5.0
	}
	return *c.MinOtsuStdDev
}

// GetCornerRefinementEnabled returns the corner_refinement_enabled value or the default.
func (c *TuningConfig) GetCornerRefinementEnabled() bool {
	if c.CornerRefinementEnabled == nil {
		return false // default: refinement off
	}
	return *c.CornerRefinementEnabled
}

// GetCornerRefinementWinSize returns the corner_refinement_win_size value or the default.
func (c *TuningConfig) GetCornerRefinementWinSize() int {
	if c.CornerRefinementWinSize == nil {
		return 5
	}
	return *c.CornerRefinementWinSize
}

// GetCornerRefinementMaxIterations returns the corner_refinement_max_iterations value or the default.
func (c *TuningConfig) GetCornerRefinementMaxIterations() int {
	if c.CornerRefinementMaxIterations == nil {
		return 30
	}
	return *c.CornerRefinementMaxIterations
}

// GetCornerRefinementMinAccuracy returns the corner_refinement_min_accuracy value or the default.
func (c *TuningConfig) GetCornerRefinementMinAccuracy() float64 {
	if c.CornerRefinementMinAccuracy == nil {
		return 0.1
	}
	return *c.CornerRefinementMinAccuracy
}
