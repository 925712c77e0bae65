package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/scout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scout:", err)
		os.Exit(1)
	}
}
