// Command bisweb inspects protocol snapshots and exercises a native engine.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
