package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "postpilot"}

	root.AddCommand(serveCMD(), cleanupCMD(), statsCMD())
	_ = root.Execute()
}
