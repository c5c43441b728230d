// Package ui implements the interactive record room terminal interface using
// bubbletea's Elm architecture.
//
// A single [Model] renders the shared playlist as a browsable track list with
// a now-playing bar underneath. Selecting a track starts playback through the
// playback session; the bar refreshes from session snapshots on a 1s tick.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, space, n/p, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
