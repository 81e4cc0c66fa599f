//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "batchio-bench requires linux (io_uring)")
	os.Exit(1)
}
