// Package formats reads and writes the YAML documents that describe rigs
// and solved poses.
//
// A rig file names every segment and its parent, so segments may be listed
// in any order; the loader sorts them topologically and rejects cycles. A
// pose file carries per-segment rotations together with world positions, so
// a renderer can draw the solved chain without running forward kinematics.
package formats
