// Package tui provides the live progress display for the write command.
//
// The display is read-only. It shows:
//   - the current pipeline phase and a progress bar over its leaves
//   - the tree size once the build phase finishes
//   - the most recent leaf results, failures highlighted
//
// Ctrl+C or 'q' asks the pipeline to stop; the program exits once the
// pipeline has returned.
//
// Usage:
//
//	program, view := tui.NewProgressProgram(task, cancel, os.Stderr)
//	go func() {
//	    for ev := range events.Events() {
//	        program.Send(tui.EventMsg{Event: ev})
//	    }
//	    program.Send(tui.DoneMsg{Err: err})
//	}()
//	_, _ = program.Run()
//	state := view.State()
package tui
