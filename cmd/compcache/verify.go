package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"composition-cache/internal/verify"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [cache]",
		Short: "Resolve every token of a cache against the configured packages",
		Long: `Load a cache and resolve every type, member and parameter token it holds,
loading packages from the configured loader directory. Prints one line per
diagnostic and exits non-zero when any token no longer resolves.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, path, err := a.load(args)
			if err != nil {
				return err
			}

			diags, err := verify.Catalog(cmd.Context(), catalog,
				verify.WithLogger(a.log.WithName("verify")),
				verify.WithConcurrency(a.cfg.Verify.Concurrency),
			)
			if err != nil {
				return err
			}

			for _, d := range diags.All() {
				fmt.Fprintf(a.out, "%s: %s\n", d.Severity, d)
				if len(d.Suggestions) > 0 {
					fmt.Fprintf(a.out, "  did you mean %s?\n", strings.Join(d.Suggestions, ", "))
				}
			}

			if diags.HasErrors() {
				return fmt.Errorf("%s: %d tokens no longer resolve", path, len(diags.Errors))
			}

			fmt.Fprintf(a.out, "ok: %d parts verified\n", catalog.Len())

			return nil
		},
	}
}
