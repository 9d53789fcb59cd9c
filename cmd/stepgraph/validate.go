package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/definition"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition-file>...",
		Short: "Check that graph definitions load and build",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg := a.registry()
			failed := 0
			for _, path := range args {
				if err := validateFile(path, reg); err != nil {
					failed++
					fmt.Fprintf(a.stdout, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(a.stdout, "%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateFile(path string, reg *tools.Registry) error {
	def, err := definition.FromFile(path)
	if err != nil {
		return err
	}
	_, err = definition.Build(def, reg)
	return err
}
