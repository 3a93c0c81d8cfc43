// Package viz renders a reach run in the terminal.
//
// [Model] is a Bubble Tea program fed by the driver through [Forward]: it
// draws the arm, the active target and the end-effector trail on a
// braille [Canvas], plots the distance to target with asciigraph and shows
// the dwell counter as a progress bar.
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the display
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	Q     - Stop the run and quit
package viz
