// Package cmd implements the restspec CLI commands:
//   - send: send a one-off request through the pipeline with optional expectations
//   - version: print version information
//   - completion: generate shell completion scripts
package cmd
