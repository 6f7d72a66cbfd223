// Package daemon wires the queue store, workflow manager, and camera
// monitor into a single-instance background service.
package daemon
