// Command quill runs the Quill text transformation server and offers offline
// helpers to inspect prompts and run one-shot transforms.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
