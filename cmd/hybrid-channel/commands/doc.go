// Package commands implements the hybrid-channel command line: an echo
// server, an interactive client, a loopback benchmark and version output.
package commands
