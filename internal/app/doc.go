// Package app wires the notebook engine to the outside world: it loads
// documents, configures logging, and runs the batch, serve, watch and REPL
// lifecycles independently of the CLI that invokes them.
package app
