package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/normalize"
)

type cliResult struct {
	OK           bool              `json:"ok"`
	Kind         string            `json:"kind,omitempty"`
	Missing      []string          `json:"missing,omitempty"`
	Invalid      []string          `json:"invalid,omitempty"`
	Record       fields.Record     `json:"record,omitempty"`
	FallbackUsed bool              `json:"fallback_used"`
	Trace        []normalize.State `json:"trace"`
}

func normalizeCmd() *cobra.Command {
	var (
		model   string
		schema  string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Run the pipeline on a saved model reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			s, ok := fields.ByName(schema)
			if !ok {
				return fmt.Errorf("unknown schema %q", schema)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			p, err := a.profile(model)
			if err != nil {
				return err
			}
			var opts []normalize.CallOption
			if offline {
				opts = append(opts, normalize.WithoutFallback())
			}
			out := a.normalizer.Normalize(cmd.Context(), raw, s, p, opts...)

			res := cliResult{OK: out.OK(), Record: out.Record, FallbackUsed: out.FallbackUsed, Trace: out.Trace}
			if f := out.Failure; f != nil {
				res.Kind, res.Missing, res.Invalid = f.Kind.String(), f.Missing, f.Invalid
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !out.OK() {
				return fmt.Errorf("normalization failed: %s", out.Kind())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model profile used for the fallback call")
	cmd.Flags().StringVar(&schema, "schema", fields.CoreName, "Field schema: core, extended or notice")
	cmd.Flags().BoolVar(&offline, "offline", false, "Never issue the fallback call")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(b), nil
}
