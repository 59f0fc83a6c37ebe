// Command formwizard serves, fills and inspects the partner intake forms.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "formwizard:", err)
		os.Exit(1)
	}
}
