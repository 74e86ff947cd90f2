package main

import (
	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/rdelta-io/rdelta/cmd"
	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

func deltaMain(_ *cobra.Command, arguments []string) error {
	// Parse arguments.
	signaturePath := arguments[0]
	var newPath, deltaPath string
	if len(arguments) > 1 {
		newPath = arguments[1]
	}
	if len(arguments) > 2 {
		deltaPath = arguments[2]
	}

	// Load and index the signature.
	signatureFile, err := openInput(signaturePath)
	if err != nil {
		return err
	}
	signature, err := rdelta.LoadSignatureFile(signatureFile)
	signatureFile.Close()
	if err != nil {
		return errors.Wrap(err, "unable to load signature")
	}
	if err := signature.BuildHashTable(); err != nil {
		return errors.Wrap(err, "unable to index signature")
	}

	// Open the new file.
	newFile, err := openInput(newPath)
	if err != nil {
		return err
	}
	defer newFile.Close()

	// Open the delta output.
	delta, err := openOutput(deltaPath, deltaConfiguration.force)
	if err != nil {
		return err
	}

	// Generate the delta.
	stats, err := rdelta.DeltaFile(signature, newFile, delta)
	if err != nil {
		return errors.Wrap(err, "unable to generate delta")
	} else if err := closeOutput(delta); err != nil {
		return errors.Wrap(err, "unable to finalize delta file")
	}

	// Print statistics, if requested.
	if deltaConfiguration.stats {
		printStatistics(stats)
	}

	// Success.
	return nil
}

var deltaCommand = &cobra.Command{
	Use:   "delta <signature> [<new> [<delta>]]",
	Short: "Generate a delta from a signature and a new file",
	Args:  cobra.RangeArgs(1, 3),
	Run:   cmd.Mainify(deltaMain),
}

var deltaConfiguration struct {
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
	flags := deltaCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message.
	flags.BoolVarP(&deltaConfiguration.help, "help", "h", false, "Show help information")

	// Wire up delta flags.
	flags.BoolVar(&deltaConfiguration.force, "force", false, "Overwrite an existing output file")
	flags.BoolVarP(&deltaConfiguration.stats, "stats", "s", false, "Print statistics on completion")
}
