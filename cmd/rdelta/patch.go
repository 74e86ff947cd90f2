package main

import (
	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/rdelta-io/rdelta/cmd"
	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

func patchMain(_ *cobra.Command, arguments []string) error {
	// Parse arguments. The basis must be a real (seekable) file, so it has
	// no stdin variant.
	basisPath := arguments[0]
	var deltaPath, newPath string
	if len(arguments) > 1 {
		deltaPath = arguments[1]
	}
	if len(arguments) > 2 {
		newPath = arguments[2]
	}

	// Open the basis.
	basis, err := openInput(basisPath)
	if err != nil {
		return err
	}
	defer basis.Close()
	if fileSize(basis) < 0 {
		return errors.New("basis must be a regular file")
	}

	// Open the delta.
	delta, err := openInput(deltaPath)
	if err != nil {
		return err
	}
	defer delta.Close()

	// Open the output.
	newFile, err := openOutput(newPath, patchConfiguration.force)
	if err != nil {
		return err
	}

	// Apply the patch.
	stats, err := rdelta.PatchFile(basis, delta, newFile)
	if err != nil {
		return errors.Wrap(err, "unable to apply delta")
	} else if err := closeOutput(newFile); err != nil {
		return errors.Wrap(err, "unable to finalize output file")
	}

	// Print statistics, if requested.
	if patchConfiguration.stats {
		printStatistics(stats)
	}

	// Success.
	return nil
}

var patchCommand = &cobra.Command{
	Use:   "patch <basis> [<delta> [<new>]]",
	Short: "Apply a delta to a basis file to reconstruct the new file",
	Args:  cobra.RangeArgs(1, 3),
	Run:   cmd.Mainify(patchMain),
}

var patchConfiguration struct {
	// help indicates whether or not help information should be shown for
	// the command.
	help bool
	// force allows overwriting an existing output file.
	force bool
	// stats indicates whether or not to print statistics on completion.
	stats bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := patchCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message.
	flags.BoolVarP(&patchConfiguration.help, "help", "h", false, "Show help information")

	// Wire up patch flags.
	flags.BoolVar(&patchConfiguration.force, "force", false, "Overwrite an existing output file")
	flags.BoolVarP(&patchConfiguration.stats, "stats", "s", false, "Print statistics on completion")
}
