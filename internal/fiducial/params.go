package fiducial

import (
	"fmt"

	"github.com/parallax-data/fiducial/internal/config"
)

// DetectorParams holds the tunable parameters for the candidate search
// and decode stages. The zero value is not usable; start from
// DefaultDetectorParams and override fields as needed.
type DetectorParams struct {
	// Adaptive thresholding window sweep
	AdaptiveThreshWinSizeMin  int     // Smallest window edge in pixels (default: 3)
	AdaptiveThreshWinSizeMax  int     // Largest window edge in pixels (default: 23)
	AdaptiveThreshWinSizeStep int     // Sweep step between window sizes (default: 10)
	AdaptiveThreshConstant    float64 // Offset subtracted from the window mean (default: 7)

	// Candidate geometry filters
	MinMarkerPerimeterRate      float64 // Min quad perimeter over the larger image edge (default: 0.03)
	MaxMarkerPerimeterRate      float64 // Max quad perimeter over the larger image edge (default: 4.0)
	PolygonalApproxAccuracyRate float64 // Douglas-Peucker epsilon over contour perimeter (default: 0.03)
	MinCornerDistanceRate       float64 // Min pairwise corner distance over perimeter (default: 0.05)
	MinDistanceToBorder         int     // Min corner distance to the image border in pixels (default: 3)
	MinMarkerDistanceRate       float64 // Min corner separation between candidates over perimeter (default: 0.05)

	// Decode stage
	MarkerBorderBits                      int     // Black border width in cells (default: 1)
	PerspectiveRemovePixelPerCell         int     // Warp resolution per cell in pixels (default: 4)
	PerspectiveRemoveIgnoredMarginPerCell float64 // Cell margin fraction excluded from bit voting (default: 0.13)
	MaxErroneousBitsInBorderRate          float64 // Tolerated fraction of wrong border bits (default: 0.35)
	ErrorCorrectionRate                   float64 // Fraction of dictionary correction capacity to use (default: 0.6)
	MinOtsuStdDev                         float64 // Patch stddev below which it reads as uniform (default: 5.0)

	// Corner refinement
	CornerRefinementEnabled       bool    // Subpixel-refine accepted corners (default: false)
	CornerRefinementWinSize       int     // Refinement half-window in pixels (default: 5)
	CornerRefinementMaxIterations int     // Refinement iteration cap (default: 30)
	CornerRefinementMinAccuracy   float64 // Corner movement below which refinement stops (default: 0.1)
}

// DefaultDetectorParams returns the standard parameter set. The values
// match the de-facto defaults used across square-marker detectors, so
// results are comparable out of the box.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		AdaptiveThreshWinSizeMin:  3,
		AdaptiveThreshWinSizeMax:  23,
		AdaptiveThreshWinSizeStep: 10,
		AdaptiveThreshConstant:    7,

		MinMarkerPerimeterRate:      0.03,
		MaxMarkerPerimeterRate:      4.0,
		PolygonalApproxAccuracyRate: 0.03,
		MinCornerDistanceRate:       0.05,
		MinDistanceToBorder:         3,
		MinMarkerDistanceRate:       0.05,

		MarkerBorderBits:                      1,
		PerspectiveRemovePixelPerCell:         4,
		PerspectiveRemoveIgnoredMarginPerCell: 0.13,
		MaxErroneousBitsInBorderRate:          0.35,
		ErrorCorrectionRate:                   0.6,
		MinOtsuStdDev:                         5.0,

		CornerRefinementEnabled:       false,
		CornerRefinementWinSize:       5,
		CornerRefinementMaxIterations: 30,
		CornerRefinementMinAccuracy:   0.1,
	}
}

// DetectorParamsFromTuning builds a DetectorParams from a loaded
// TuningConfig. Use this where a tuning file is already loaded; fields
// absent from the file keep their defaults via the Get* fallbacks.
func DetectorParamsFromTuning(cfg *config.TuningConfig) DetectorParams {
	return DetectorParams{
		AdaptiveThreshWinSizeMin:  cfg.GetAdaptiveThreshWinSizeMin(),
		AdaptiveThreshWinSizeMax:  cfg.GetAdaptiveThreshWinSizeMax(),
		AdaptiveThreshWinSizeStep: cfg.GetAdaptiveThreshWinSizeStep(),
		AdaptiveThreshConstant:    cfg.GetAdaptiveThreshConstant(),

		MinMarkerPerimeterRate:      cfg.GetMinMarkerPerimeterRate(),
		MaxMarkerPerimeterRate:      cfg.GetMaxMarkerPerimeterRate(),
		PolygonalApproxAccuracyRate: cfg.GetPolygonalApproxAccuracyRate(),
		MinCornerDistanceRate:       cfg.GetMinCornerDistanceRate(),
		MinDistanceToBorder:         cfg.GetMinDistanceToBorder(),
		MinMarkerDistanceRate:       cfg.GetMinMarkerDistanceRate(),

		MarkerBorderBits:                      cfg.GetMarkerBorderBits(),
		PerspectiveRemovePixelPerCell:         cfg.GetPerspectiveRemovePixelPerCell(),
		PerspectiveRemoveIgnoredMarginPerCell: cfg.GetPerspectiveRemoveIgnoredMarginPerCell(),
		MaxErroneousBitsInBorderRate:          cfg.GetMaxErroneousBitsInBorderRate(),
		ErrorCorrectionRate:                   cfg.GetErrorCorrectionRate(),
		MinOtsuStdDev:                         cfg.GetMinOtsuStdDev(),

		CornerRefinementEnabled:       cfg.GetCornerRefinementEnabled(),
		CornerRefinementWinSize:       cfg.GetCornerRefinementWinSize(),
		CornerRefinementMaxIterations: cfg.GetCornerRefinementMaxIterations(),
		CornerRefinementMinAccuracy:   cfg.GetCornerRefinementMinAccuracy(),
	}
}

// Validate checks if the parameter set is usable.
// Returns an error if any parameter is out of acceptable range.
func (p DetectorParams) Validate() error {
	if p.AdaptiveThreshWinSizeMin < 3 {
		return fmt.Errorf("AdaptiveThreshWinSizeMin must be at least 3, got %d", p.AdaptiveThreshWinSizeMin)
	}
	if p.AdaptiveThreshWinSizeMax < p.AdaptiveThreshWinSizeMin {
		return fmt.Errorf("AdaptiveThreshWinSizeMax must be >= AdaptiveThreshWinSizeMin, got %d < %d",
			p.AdaptiveThreshWinSizeMax, p.AdaptiveThreshWinSizeMin)
	}
	if p.AdaptiveThreshWinSizeStep < 1 {
		return fmt.Errorf("AdaptiveThreshWinSizeStep must be positive, got %d", p.AdaptiveThreshWinSizeStep)
	}
	if p.MinMarkerPerimeterRate <= 0 {
		return fmt.Errorf("MinMarkerPerimeterRate must be positive, got %f", p.MinMarkerPerimeterRate)
	}
	if p.MaxMarkerPerimeterRate <= p.MinMarkerPerimeterRate {
		return fmt.Errorf("MaxMarkerPerimeterRate must exceed MinMarkerPerimeterRate, got %f <= %f",
			p.MaxMarkerPerimeterRate, p.MinMarkerPerimeterRate)
	}
	if p.PolygonalApproxAccuracyRate <= 0 {
		return fmt.Errorf("PolygonalApproxAccuracyRate must be positive, got %f", p.PolygonalApproxAccuracyRate)
	}
	if p.MinCornerDistanceRate < 0 {
		return fmt.Errorf("MinCornerDistanceRate must be non-negative, got %f", p.MinCornerDistanceRate)
	}
	if p.MinDistanceToBorder < 0 {
		return fmt.Errorf("MinDistanceToBorder must be non-negative, got %d", p.MinDistanceToBorder)
	}
	if p.MinMarkerDistanceRate < 0 {
		return fmt.Errorf("MinMarkerDistanceRate must be non-negative, got %f", p.MinMarkerDistanceRate)
	}
	if p.MarkerBorderBits < 1 {
		return fmt.Errorf("MarkerBorderBits must be at least 1, got %d", p.MarkerBorderBits)
	}
	if p.PerspectiveRemovePixelPerCell < 1 {
		return fmt.Errorf("PerspectiveRemovePixelPerCell must be at least 1, got %d", p.PerspectiveRemovePixelPerCell)
	}
	if p.PerspectiveRemoveIgnoredMarginPerCell < 0 || p.PerspectiveRemoveIgnoredMarginPerCell >= 0.5 {
		return fmt.Errorf("PerspectiveRemoveIgnoredMarginPerCell must be in [0, 0.5), got %f",
			p.PerspectiveRemoveIgnoredMarginPerCell)
	}
	if p.MaxErroneousBitsInBorderRate < 0 || p.MaxErroneousBitsInBorderRate > 1 {
		return fmt.Errorf("MaxErroneousBitsInBorderRate must be in [0, 1], got %f", p.MaxErroneousBitsInBorderRate)
	}
	if p.ErrorCorrectionRate < 0 || p.ErrorCorrectionRate > 1 {
		return fmt.Errorf("ErrorCorrectionRate must be in [0, 1], got %f", p.ErrorCorrectionRate)
	}
	if p.MinOtsuStdDev < 0 {
		return fmt.Errorf("MinOtsuStdDev must be non-negative, got %f", p.MinOtsuStdDev)
	}
	if p.CornerRefinementEnabled {
		if p.CornerRefinementWinSize < 1 {
			return fmt.Errorf("CornerRefinementWinSize must be at least 1, got %d", p.CornerRefinementWinSize)
		}
		if p.CornerRefinementMaxIterations < 1 {
			return fmt.Errorf("CornerRefinementMaxIterations must be at least 1, got %d", p.CornerRefinementMaxIterations)
		}
		if p.CornerRefinementMinAccuracy <= 0 {
			return fmt.Errorf("CornerRefinementMinAccuracy must be positive, got %f", p.CornerRefinementMinAccuracy)
		}
	}
	return nil
}
