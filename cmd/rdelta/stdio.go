package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

// openInput opens the file at path for reading, treating "-" and the empty
// string as standard input.
func openInput(path string) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open input file")
	}
	return file, nil
}

// openOutput creates the file at path for writing, treating "-" and the
// empty string as standard output. Existing files are only overwritten when
// force is set.
func openOutput(path string, force bool) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("output file %s exists (use --force to overwrite)", path)
		}
		return nil, errors.Wrap(err, "unable to create output file")
	}
	return file, nil
}

// closeOutput closes an output file opened with openOutput, leaving the
// standard streams open.
func closeOutput(file *os.File) error {
	if file == os.Stdout {
		return nil
	}
	return file.Close()
}

// fileSize returns the size of a regular file, or -1 if the size can't be
// determined (e.g. for pipes and terminals).
func fileSize(file *os.File) int64 {
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return -1
	}
	return info.Size()
}

// printStatistics renders job statistics to standard error, colorizing the
// heading when standard error is a terminal.
func printStatistics(stats *rdelta.Statistics) {
	heading := fmt.Sprintf("%s:", stats.Op)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		heading = color.CyanString("%s", heading)
	}
	fmt.Fprintf(os.Stderr, "%s in %s, out %s\n",
		heading,
		humanize.Bytes(uint64(stats.InBytes)),
		humanize.Bytes(uint64(stats.OutBytes)),
	)
	if stats.LitCmds > 0 || stats.CopyCmds > 0 {
		fmt.Fprintf(os.Stderr, "  literal: %d commands, %s\n",
			stats.LitCmds, humanize.Bytes(uint64(stats.LitBytes)))
		fmt.Fprintf(os.Stderr, "  copy: %d commands, %s (%d matches, %d false)\n",
			stats.CopyCmds, humanize.Bytes(uint64(stats.CopyBytes)),
			stats.Matches, stats.FalseMatches)
	}
	if stats.SigBlocks > 0 {
		fmt.Fprintf(os.Stderr, "  signature: %s blocks of %s\n",
			humanize.Comma(stats.SigBlocks), humanize.Bytes(uint64(stats.BlockLen)))
	}
}
