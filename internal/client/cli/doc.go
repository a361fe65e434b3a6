// Package cli provides the interactive Briefly command-line client.
//
// It wires configuration, the local session store, the API client and the
// session and collection controllers, and runs a line-oriented REPL on top
// of them. Typical flow: restore the saved session (or log in), list
// summaries, open one, copy, download or regenerate it, go back.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
