// Package main provides the sysextract CLI tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZacharyZcR/SyscallExtract/internal/cli"
	"github.com/ZacharyZcR/SyscallExtract/internal/logging"
	"github.com/ZacharyZcR/SyscallExtract/internal/syscalls"
)

// exitFailure is returned when no syscall could be extracted.
const exitFailure = -1

type options struct {
	systemRoot string
	verify     bool
	verbose    bool
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, syscalls.ErrNoSyscallsExtracted):
		return exitFailure
	default:
		return 1
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "sysextract [output-path]",
		Short:         "Extract syscalls from system DLLs (ntdll.dll, win32u.dll)",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := syscalls.DefaultConfig()
			if len(args) == 0 {
				printUsage(stdout)
			} else {
				cfg.OutputPath = args[0]
			}
			cfg.SystemRoot = opts.systemRoot
			cfg.Verify = opts.verify

			return run(cfg, opts, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.systemRoot, "sysroot", "", "Windows directory to read the DLLs from (default: %SystemRoot%)")
	flags.BoolVar(&opts.verify, "verify", false, "cross-check IDs against the service numbers in the stubs")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print debug diagnostics and a per-DLL summary")

	return cmd
}

func run(cfg syscalls.Config, opts *options, stdout, stderr io.Writer) error {
	logCfg := logging.DefaultConfig()
	logCfg.Output = stderr
	if opts.verbose {
		logCfg.Level = "debug"
	}
	log := logging.New(logCfg)

	report, err := syscalls.Run(cfg, log)
	if err != nil {
		return err
	}

	reporter := cli.NewReporter(report, stdout)
	reporter.SetVerbose(opts.verbose)
	reporter.Print()
	return nil
}

func printUsage(w io.Writer) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintln(w, "Extract syscalls from system DLLs (ntdll.dll, win32u.dll)")
	fmt.Fprintln(w, "\tOptional arg: <out path>")
	fmt.Fprintf(w, "\tDefault: %s\n", syscalls.DefaultOutput)
}
