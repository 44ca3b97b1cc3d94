//go:build !raylib

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "planetview was built without raylib; rebuild with -tags raylib")
	os.Exit(2)
}
