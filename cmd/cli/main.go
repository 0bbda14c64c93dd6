package main

import (
	"fmt"
	"os"

	"github.com/docwatch/docwatch/cmd/cli/root"
	"github.com/docwatch/docwatch/cmd/cli/schedules"
)

func main() {
	rootCmd := root.GetRoot()
	schedules.InitSchedules(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
