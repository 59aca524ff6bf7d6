// Package viz draws a running power-chain network in the terminal.
//
//   - [Model]: Bubble Tea model that ticks a network at 60 Hz
//   - [App]: preset picker in front of the live view
//   - [Canvas]: Braille-based pixel canvas
//   - [Render]: draws a network onto a canvas, also used for SVG export
//
// Gears are drawn as circles with three spokes at their current angle, worms
// with two and shafts with one. Motors get an outer ring and disabled parts
// are struck through.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	N       - Single step while paused
//	Tab     - Select next part
//	Up/Down - Motor speed ±5 rpm
//	E       - Re-enable the selected part
//	U       - One-shot update from the selected motor
//	L       - Toggle live mode on the selected motor
//	T       - Cycle color themes
//	?       - Show help overlay
package viz
