package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdelta-io/rdelta/cmd"
	"github.com/rdelta-io/rdelta/pkg/logging"
	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

// Version is the rdelta tool version.
const Version = "1.0.0"

func rootMain(command *cobra.Command, arguments []string) {
	// Print version information, if requested.
	if rootConfiguration.version {
		fmt.Println(Version)
		return
	}

	// If no flags were set, then print help information and bail.
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "rdelta",
	Short: "rdelta computes and applies binary deltas between similar files.",
	Run:   rootMain,
}

var rootConfiguration struct {
	// help indicates whether or not help information should be shown for
	// the command.
	help bool
	// version indicates whether or not version information should be shown.
	version bool
	// logLevel is the trace log level name.
	logLevel string
}

func init() {
	// Grab a handle for the command line flags.
	flags := rootCommand.PersistentFlags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	rootCommand.Flags().BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	// Wire up root command flags.
	rootCommand.Flags().BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")
	flags.StringVar(&rootConfiguration.logLevel, "log-level", "disabled", "Set the log level (disabled, error, warn, info, debug, or trace)")

	// Configure tracing before any subcommand runs.
	rootCommand.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		level, ok := logging.NameToLevel(rootConfiguration.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level: %s", rootConfiguration.logLevel)
		}
		rdelta.SetTraceLevel(level)
		return nil
	}

	// Register commands.
	rootCommand.AddCommand(
		signatureCommand,
		deltaCommand,
		patchCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}
