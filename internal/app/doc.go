// Package app contains the core application logic. It loads a scenario,
// runs the world model through the engine year by year, optionally streams
// each settled year, and writes the run result, decoupled from any specific
// entrypoint like a CLI.
package app
