// package tasks contains playback orchestration over the shared playlist.
package tasks
