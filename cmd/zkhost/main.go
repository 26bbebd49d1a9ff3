// Command zkhost proves and verifies the benchmark guest programs.
//
// Usage:
//
//	zkhost programs
//	zkhost prove <program> [--input name=kind:value]... [--out receipt.bin]
//	zkhost verify <program> --receipt receipt.bin
//	zkhost verify --stored <digest>
//	zkhost decode --receipt receipt.bin (--layout u32,u64[2] | --program name)
//
// Global flags select the configuration file, backend, receipt store and
// logging; see zkhost --help.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lambdaclass/zk-benchmarks/metrics"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitRejected = 2
)

// errRejected reports a well-formed receipt that failed verification.
var errRejected = errors.New("receipt rejected")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.close()

	if a.printMetrics {
		if werr := metrics.DefaultRegistry.WriteText(stdout, "zkhost"); werr != nil {
			fmt.Fprintf(stderr, "write metrics: %v\n", werr)
		}
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errRejected):
		fmt.Fprintln(stderr, "Error:", err)
		return exitRejected
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s)", version, commit)
}

func newCommand(use, short string, args cobra.PositionalArgs, runE func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE:  runE,
	}
}
