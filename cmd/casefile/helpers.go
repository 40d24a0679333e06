package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// runWithApp wraps a subcommand body with app open and close.
func runWithApp(flags *rootFlags, body func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(flags)
		if err != nil {
			return err
		}
		defer a.close()
		return body(a, cmd, args)
	}
}

// buildPatch turns --set field=value and --clear field flags into a
// patch: sets carry values, clears become explicit nulls.
func buildPatch(allowed []string, sets, clears []string) (*types.Patch, error) {
	fields := map[string]any{}
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok {
			return nil, types.WrapInvalid("--set wants field=value, got %q", set)
		}
		fields[name] = value
	}
	for _, name := range clears {
		fields[name] = nil
	}
	return patchOf(allowed, fields)
}

// patchOf builds a typed patch from flag values.
func patchOf(allowed []string, fields map[string]any) (*types.Patch, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return types.ParsePatch(body, allowed)
}

// printJSON renders a result to stdout. All structured command output
// goes through here so scripts get a stable shape.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
