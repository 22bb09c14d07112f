package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-boutdata/collect"
)

func (a *app) dimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dims VARIABLE",
		Short: "Print the dimensions of a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := collect.Dimensions(args[0], a.cfg.Path, a.cfg.Prefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(%s)\n", strings.Join(dims, ", "))
			return nil
		},
	}
}

func (a *app) attrsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attrs VARIABLE",
		Short: "Print the attributes of a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := collect.Attributes(args[0], a.cfg.Path, a.cfg.Prefix)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := newTable("ATTRIBUTE", "VALUE")
			for _, k := range keys {
				t.add(k, fmt.Sprint(attrs[k]))
			}
			return t.render(cmd.OutOrStdout())
		},
	}
}
