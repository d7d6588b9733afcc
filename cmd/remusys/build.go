package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/lower"
	"github.com/medihbt/remusys-ir-sub003/internal/mir"
)

// newBuildCmd drives the demo module all the way to textual AArch64
// assembly: structural check, global DCE + GC, the four-pass lowering
// pipeline, and an assembly dump to stdout or -o.
func newBuildCmd(flags *rootFlags) *cobra.Command {
	var irOut string
	var asmOut string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Lower the demo module to AArch64 assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			cfg.Apply()

			m := buildDemoModule()
			if err := ir.Check(m); err != nil {
				return fmt.Errorf("build: demo module failed structural check: %w", err)
			}

			removed := ir.DCEGlobals(m)
			logrus.WithField("globals_removed", removed).Debug("ran global dead-code elimination")

			if irOut != "" {
				if err := writeToFile(irOut, func(w io.Writer) error { return ir.Write(w, m) }); err != nil {
					return fmt.Errorf("build: writing IR: %w", err)
				}
			}

			mm := lower.NewPipeline(m).Run()

			if asmOut != "" {
				return writeToFile(asmOut, func(w io.Writer) error { return mir.Write(w, mm) })
			}
			return mir.Write(cmd.OutOrStdout(), mm)
		},
	}
	cmd.Flags().StringVar(&irOut, "emit-ir", "", "also write the pre-lowering textual IR to this path")
	cmd.Flags().StringVarP(&asmOut, "output", "o", "", "write assembly here instead of stdout")
	return cmd
}

func writeToFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
