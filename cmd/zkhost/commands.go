package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/lambdaclass/zk-benchmarks/guest"
	"github.com/lambdaclass/zk-benchmarks/journal"
	"github.com/lambdaclass/zk-benchmarks/log"
	"github.com/lambdaclass/zk-benchmarks/node"
	"github.com/lambdaclass/zk-benchmarks/zkvm"
)

// app carries global flag values and the lazily built node.
type app struct {
	stdout, stderr io.Writer

	configPath   string
	logLevel     string
	logFormat    string
	backend      string
	ikm          string
	verifyKey    string
	stepBudget   uint64
	storePath    string
	manifests    []string
	printMetrics bool

	node *node.Node
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "zkhost",
		Short:         "Prove and verify benchmark guest programs",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&a.backend, "backend", "", "Proving backend: local, attested, unavailable")
	pf.StringVar(&a.ikm, "attestation-ikm", "", "0x-prefixed BLS key material for the attested backend")
	pf.StringVar(&a.verifyKey, "verify-key", "", "0x-prefixed BLS public key for verify-only attested mode")
	pf.Uint64Var(&a.stepBudget, "step-budget", 0, "Guest step limit (0 = default)")
	pf.StringVar(&a.storePath, "store", "", "Enable the receipt store at this LevelDB directory")
	pf.StringArrayVar(&a.manifests, "manifest", nil, "Program manifest to register (repeatable)")
	pf.BoolVar(&a.printMetrics, "metrics", false, "Print metrics in Prometheus text format on exit")

	root.AddCommand(
		a.programsCommand(),
		a.proveCommand(),
		a.verifyCommand(),
		a.decodeCommand(),
	)
	return root
}

// loadNode builds the node from the config file and flag overrides.
func (a *app) loadNode(cmd *cobra.Command) (*node.Node, error) {
	if a.node != nil {
		return a.node, nil
	}
	cfg := node.DefaultConfig()
	if a.configPath != "" {
		loaded, err := node.LoadConfigFile(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("backend") {
		cfg.Backend.Kind = a.backend
	}
	if flags.Changed("attestation-ikm") {
		cfg.Backend.AttestationIKM = a.ikm
	}
	if flags.Changed("verify-key") {
		cfg.Backend.VerifyKey = a.verifyKey
	}
	if flags.Changed("step-budget") {
		cfg.Backend.StepBudget = a.stepBudget
	}
	if flags.Changed("store") {
		cfg.Store.Enabled = true
		cfg.Store.Path = a.storePath
	}
	cfg.Manifests = append(cfg.Manifests, a.manifests...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.NewWriter(a.stderr, cfg.LogLevel(), cfg.Log.Format == "text")
	log.SetDefault(logger)
	n, err := node.New(&cfg, logger)
	if err != nil {
		return nil, err
	}
	a.node = n
	return n, nil
}

func (a *app) close() {
	if a.node != nil {
		if err := a.node.Close(); err != nil {
			fmt.Fprintf(a.stderr, "close: %v\n", err)
		}
	}
}

// --- programs ---

func (a *app) programsCommand() *cobra.Command {
	return newCommand("programs", "List registered guest programs", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			n, err := a.loadNode(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tALGORITHM\tID\tINPUTS\tLAYOUT")
			for _, p := range n.Registry().Programs() {
				id, err := p.ID()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Algorithm, id.Hex(), formatInputs(p.Inputs()), p.Layout())
			}
			return w.Flush()
		})
}

func formatInputs(inputs []guest.Input) string {
	if len(inputs) == 0 {
		return "-"
	}
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = in.Name + ":" + in.Kind
	}
	return strings.Join(parts, ",")
}

// --- prove ---

func (a *app) proveCommand() *cobra.Command {
	var (
		rawInputs []string
		outPath   string
		asJSON    bool
	)
	cmd := newCommand("prove <program>", "Run one proof attempt for a program", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			inputs, err := parseInputs(rawInputs)
			if err != nil {
				return err
			}
			n, err := a.loadNode(cmd)
			if err != nil {
				return err
			}
			out, err := n.Prove(cmd.Context(), args[0], func(b *zkvm.ContextBuilder) {
				for _, in := range inputs {
					in.apply(b)
				}
			})
			if err != nil {
				return err
			}
			program, _, err := n.Program(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "program:  %s\n", program.Name)
			fmt.Fprintf(w, "id:       %s\n", out.Info.ProgramID.Hex())
			fmt.Fprintf(w, "attempt:  %s\n", out.Info.AttemptID)
			fmt.Fprintf(w, "proof:    %s\n", out.Receipt.ProofSystem)
			fmt.Fprintf(w, "steps:    %d\n", out.Info.Steps)
			fmt.Fprintf(w, "digest:   %s\n", out.Digest.Hex())
			if err := printJournal(w, out.Receipt, program.Layout()); err != nil {
				return err
			}
			if outPath != "" {
				if err := writeReceipt(outPath, out.Receipt, asJSON); err != nil {
					return err
				}
				fmt.Fprintf(w, "receipt:  %s\n", outPath)
			}
			return nil
		})
	f := cmd.Flags()
	f.StringArrayVarP(&rawInputs, "input", "i", nil, "Input segment name=kind:value, kind one of u32, u64, u256, hex, text (repeatable, in read order)")
	f.StringVarP(&outPath, "out", "o", "", "Write the receipt to this file")
	f.BoolVar(&asJSON, "json", false, "Write the receipt as JSON instead of binary")
	return cmd
}

// --- verify ---

func (a *app) verifyCommand() *cobra.Command {
	var (
		receiptPath string
		stored      string
	)
	cmd := newCommand("verify [program]", "Verify a receipt against a program identity", cobra.MaximumNArgs(1),
		func(cmd *cobra.Command, args []string) error {
			n, err := a.loadNode(cmd)
			if err != nil {
				return err
			}
			var ok bool
			switch {
			case stored != "":
				var digest common.Hash
				if err := digest.UnmarshalText([]byte(stored)); err != nil {
					return fmt.Errorf("--stored: %v", err)
				}
				ok, err = n.VerifyStored(cmd.Context(), digest)
			case receiptPath != "" && len(args) == 1:
				receipt, rerr := readReceipt(receiptPath)
				if rerr != nil {
					return rerr
				}
				ok, err = n.Verify(cmd.Context(), args[0], receipt)
			default:
				return fmt.Errorf("need <program> --receipt <file>, or --stored <digest>")
			}
			if err != nil {
				return err
			}
			if !ok {
				return errRejected
			}
			fmt.Fprintln(cmd.OutOrStdout(), "receipt valid")
			return nil
		})
	cmd.Flags().StringVarP(&receiptPath, "receipt", "r", "", "Receipt file, binary or JSON")
	cmd.Flags().StringVar(&stored, "stored", "", "Digest of a receipt in the receipt store")
	return cmd
}

// --- decode ---

func (a *app) decodeCommand() *cobra.Command {
	var (
		receiptPath string
		layoutStr   string
		programName string
	)
	cmd := newCommand("decode", "Decode a receipt journal without verifying it", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			if receiptPath == "" {
				return fmt.Errorf("--receipt is required")
			}
			receipt, err := readReceipt(receiptPath)
			if err != nil {
				return err
			}
			var layout journal.Layout
			switch {
			case layoutStr != "":
				if layout, err = journal.ParseLayout(layoutStr); err != nil {
					return err
				}
			case programName != "":
				n, err := a.loadNode(cmd)
				if err != nil {
					return err
				}
				p, _, err := n.Program(programName)
				if err != nil {
					return err
				}
				layout = p.Layout()
			default:
				return fmt.Errorf("need --layout or --program")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "proof:    %s\n", receipt.ProofSystem)
			return printJournal(w, receipt, layout)
		})
	f := cmd.Flags()
	f.StringVarP(&receiptPath, "receipt", "r", "", "Receipt file, binary or JSON")
	f.StringVar(&layoutStr, "layout", "", "Comma-separated journal layout, e.g. u32,u64[2],bytes[32]")
	f.StringVar(&programName, "program", "", "Use the journal layout of this program")
	return cmd
}

// --- helpers ---

func printJournal(w io.Writer, receipt *zkvm.Receipt, layout journal.Layout) error {
	values, err := zkvm.DecodeJournal(receipt, layout)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "journal:  0x%x\n", receipt.Journal)
	for i, v := range values {
		fmt.Fprintf(w, "  [%d] %s\n", i, v)
	}
	return nil
}

func writeReceipt(path string, receipt *zkvm.Receipt, asJSON bool) error {
	var (
		data []byte
		err  error
	)
	if asJSON {
		data, err = json.MarshalIndent(receipt, "", "  ")
	} else {
		data, err = receipt.MarshalBinary()
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// readReceipt loads a receipt file, accepting either the JSON or the
// binary encoding.
func readReceipt(path string) (*zkvm.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		r := new(zkvm.Receipt)
		if err := json.Unmarshal(trimmed, r); err != nil {
			return nil, err
		}
		return r, nil
	}
	return zkvm.ParseReceipt(data)
}
