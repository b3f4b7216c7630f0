package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MishaelXV/Diplom-project/internal/inverse"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wellflow %s (%s) %s/%s %s\n",
			version, commit, runtime.GOOS, runtime.GOARCH, runtime.Version())
		return err
	},
}

func methodNames() string {
	names := make([]string, 0, len(inverse.Methods()))
	for _, m := range inverse.Methods() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
