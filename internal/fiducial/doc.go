// Package fiducial implements square fiducial marker detection and
// single-marker pose estimation over raw BGRA camera frames.
//
// Responsibilities: grayscale conversion, adaptive-threshold candidate
// search, identifier decoding against a marker dictionary, planar
// perspective pose solving, mask dilation, and the per-detector store
// that serves identifier and pose queries between detection passes.
// Key types: Detector, Frame, Intrinsics, Detection.
//
// Dependency rule: fiducial may depend on fiducial/dict, but never on
// storage or cmd packages. No SQL/database code is allowed in this
// package.
package fiducial
