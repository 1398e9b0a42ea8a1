//go:build linux

// Command sandbox-init is started by the sandbox engine for every run and
// becomes the sandboxed program. It is not meant to be run by hand.
package main

import "ojbox/internal/sandbox/launcher"

func main() {
	launcher.Main()
}
