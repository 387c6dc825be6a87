// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle: loading a catalogue,
// building the graphs of the selected calculation configurations and
// writing them out, decoupled from any specific entrypoint like a CLI.
package app
