// Package source provides frame sources for the particle tracking pipeline.
//
// Stack keeps frames in memory, ImageSequence reads a directory of image files
// (one file per frame) with an optional calibration sidecar, and Synthetic renders
// moving Gaussian spots for demos and tests.
package source
