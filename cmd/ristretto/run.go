package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "run <class>",
		Short: "Execute a class's public static void main(String[])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClass(cfg, className(args[0]))
		},
	}
}

func runClass(cfg *config, main string) error {
	log := cfg.logger()

	dl, err := cfg.buildClassLoader(log)
	if err != nil {
		return err
	}

	cf, err := dl.ReadClass(main)
	if err != nil {
		return fail("reading %s: %w", main, err)
	}

	machine := cfg.buildVM(dl, log, os.Stdout)
	machine.Intrinsics = intrinsicsFor(int(cf.Version.Major()))

	if err := machine.Run(main); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("uncaught exception running %s: %v", main, err)))
		return fail("execution failed")
	}
	return nil
}
