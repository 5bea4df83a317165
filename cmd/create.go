package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NREL/Spawn-sub001/spawn/fmu"
	"github.com/NREL/Spawn-sub001/spawn/input"
)

var createOpts fmu.CreateOptions

// --- spawn create-fmu ---

var createFMUCmd = &cobra.Command{
	Use:   "create-fmu <input>",
	Short: "Package a spawn input as an FMI 2.0 model-exchange FMU",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in, err := input.Load(args[0])
		if err != nil {
			logrus.Fatalf("Cannot load spawn input: %v", err)
		}
		path, err := fmu.Create(in, createOpts)
		if err != nil {
			logrus.Fatalf("FMU creation failed: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

// --- spawn model-description ---

var modelDescriptionCmd = &cobra.Command{
	Use:   "model-description <input>",
	Short: "Print the modelDescription.xml of a spawn input to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in, err := input.Load(args[0])
		if err != nil {
			logrus.Fatalf("Cannot load spawn input: %v", err)
		}
		md, err := fmu.ForInput(in)
		if err != nil {
			logrus.Fatalf("Cannot describe %s: %v", args[0], err)
		}
		if err := md.Write(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Cannot write model description: %v", err)
		}
	},
}

func init() {
	createFMUCmd.Flags().StringVar(&createOpts.OutputPath, "output-path", "", "Path of the .fmu file to write")
	createFMUCmd.Flags().StringVar(&createOpts.OutputDir, "output-dir", "", "Directory receiving <fmu name>.fmu (default: current directory)")
	createFMUCmd.Flags().BoolVar(&createOpts.NoZip, "no-zip", false, "Leave the staged FMU directory instead of zipping it")
	createFMUCmd.Flags().BoolVar(&createOpts.NoCompress, "no-compress", false, "Store zip entries without compression")
	createFMUCmd.Flags().StringVar(&createOpts.LibraryPath, "library", "", "epfmi shared library to place under binaries/")
}
