// Package main provides the entry point for the ia CLI.
package main

import (
	"os"

	"github.com/zhagnzhenfei/industry-assistant/cmd/ia/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
