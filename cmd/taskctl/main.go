// Command taskctl manages a taskboard from the terminal.
package main

import (
	"os"
)

func main() {
	if err := execute(os.Stdout, nil); err != nil {
		os.Exit(1)
	}
}
