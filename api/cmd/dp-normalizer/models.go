package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			def := a.profiles.Default().Key
			for _, k := range a.profiles.Keys() {
				p, _ := a.profiles.Lookup(k)
				mark := " "
				if k == def {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %-8s %-36s %s\n", mark, k, p.Provider, p.Model, p.Label)
			}
			return nil
		},
	}
}
