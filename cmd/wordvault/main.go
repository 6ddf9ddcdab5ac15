// Package main implements the wordvault command line tool, which wraps
// the vocabulary engine for headless use and runs the sync server.
package main

import "github.com/wordvault/wordvault/cmd/wordvault/cmd"

func main() {
	cmd.Execute()
}
