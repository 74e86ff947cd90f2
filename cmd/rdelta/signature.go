package main

import (
	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/rdelta-io/rdelta/cmd"
	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

// signatureMagic resolves the --hash and --rollsum flags to a signature
// format.
func signatureMagic(hash, rollsum string) (rdelta.Magic, error) {
	switch {
	case hash == "blake2" && rollsum == "rabinkarp":
		return rdelta.RKBLAKE2SigMagic, nil
	case hash == "md4" && rollsum == "rabinkarp":
		return rdelta.RKMD4SigMagic, nil
	case hash == "blake2" && rollsum == "classic":
		return rdelta.BLAKE2SigMagic, nil
	case hash == "md4" && rollsum == "classic":
		return rdelta.MD4SigMagic, nil
	case hash != "blake2" && hash != "md4":
		return 0, errors.Errorf("unknown hash algorithm: %s", hash)
	default:
		return 0, errors.Errorf("unknown rollsum algorithm: %s", rollsum)
	}
}

func signatureMain(_ *cobra.Command, arguments []string) error {
	// Parse arguments.
	var basisPath, signaturePath string
	if len(arguments) > 0 {
		basisPath = arguments[0]
	}
	if len(arguments) > 1 {
		signaturePath = arguments[1]
	}

	// Resolve the signature format.
	magic, err := signatureMagic(signatureConfiguration.hash, signatureConfiguration.rollsum)
	if err != nil {
		return err
	}

	// Open the basis.
	basis, err := openInput(basisPath)
	if err != nil {
		return err
	}
	defer basis.Close()

	// Open the signature output.
	signature, err := openOutput(signaturePath, signatureConfiguration.force)
	if err != nil {
		return err
	}

	// Generate the signature.
	stats, err := rdelta.SignatureFile(
		basis,
		signature,
		fileSize(basis),
		magic,
		signatureConfiguration.blockSize,
		signatureConfiguration.sumSize.value,
	)
	if err != nil {
		return errors.Wrap(err, "unable to generate signature")
	} else if err := closeOutput(signature); err != nil {
		return errors.Wrap(err, "unable to finalize signature file")
	}

	// Print statistics, if requested.
	if signatureConfiguration.stats {
		printStatistics(stats)
	}

	// Success.
	return nil
}

var signatureCommand = &cobra.Command{
	Use:   "signature [<basis> [<signature>]]",
	Short: "Generate the signature of a basis file",
	Args:  cobra.MaximumNArgs(2),
	Run:   cmd.Mainify(signatureMain),
}

var signatureConfiguration struct {
	// help indicates whether or not help information should be shown for
	// the command.
	help bool
	// blockSize is the signature block size (0 selects a recommended value
	// based on the basis size).
	blockSize uint32
	// sumSize is the number of strong sum bytes retained per block.
	sumSize strongLenFlag
	// hash selects the strong hash algorithm.
	hash string
	// rollsum selects the rolling checksum algorithm.
	rollsum string
	// force allows overwriting an existing output file.
	force bool
	// stats indicates whether or not to print statistics on completion.
	stats bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := signatureCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message.
	flags.BoolVarP(&signatureConfiguration.help, "help", "h", false, "Show help information")

	// Wire up signature flags.
	flags.Uint32VarP(&signatureConfiguration.blockSize, "block-size", "b", 0, "Signature block size (0 for recommended)")
	flags.VarP(&signatureConfiguration.sumSize, "sum-size", "S", "Strong sum bytes per block (max, min, or a byte count)")
	flags.StringVarP(&signatureConfiguration.hash, "hash", "H", "blake2", "Strong hash algorithm (blake2 or md4)")
	flags.StringVarP(&signatureConfiguration.rollsum, "rollsum", "R", "rabinkarp", "Rolling checksum algorithm (rabinkarp or classic)")
	flags.BoolVar(&signatureConfiguration.force, "force", false, "Overwrite an existing output file")
	flags.BoolVarP(&signatureConfiguration.stats, "stats", "s", false, "Print statistics on completion")
}
