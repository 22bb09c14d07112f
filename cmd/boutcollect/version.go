package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-boutdata/collect"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boutcollect %s (%s %s/%s)\n", collect.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
