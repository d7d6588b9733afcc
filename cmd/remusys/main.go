// Command remusys drives the Remusys IR/MIR library end to end: it builds
// a demo SSA module through the builder API, runs the structural checker,
// and (for `build`) the four-pass lowering pipeline down to textual AArch64
// assembly.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
