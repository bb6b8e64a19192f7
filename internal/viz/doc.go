// Package viz renders the linkage and oscillator runs in the terminal.
//
//   - [Model]: Bubble Tea program animating the linkage frame by frame
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - [RenderPanels]: asciigraph rendering of the six oscillator panels
//
// # Key Bindings
//
//	Space - Pause/Resume animation
//	R     - Restart from frame 0
//	[ ]   - Step one frame back/forward while paused
//	+ -   - Zoom in/out (spring smoothed)
//	Tab   - Cycle linkage parameters
//	↑ ↓   - Tune the selected parameter by 5%
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
