// Command searchctl builds, queries and inspects search indexes from the
// command line, without any of the services running.
//
// Usage:
//
//	searchctl build --src docs/src --out book/searchindex.js
//	searchctl query --index book/searchindex.js "custom resources"
//	searchctl inspect --index book/searchindex.js
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
