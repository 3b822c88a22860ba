package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"composition-cache/internal/cache"
	"composition-cache/internal/stabilize"
)

func newStabilizeCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "stabilize [cache]",
		Short: "Generate a forwarding package and a cache pointing into it",
		Long: `Rewrite every token of a cache to point into a generated package of type
aliases and forwarders, write that package to the configured output
directory and save the rewritten cache.

Examples:
  # Writes the package to stabilize.output_dir and the cache to parts.cache.stable
  compcache stabilize parts.cache

  compcache stabilize parts.cache --out stable.cache`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, path, err := a.load(args)
			if err != nil {
				return err
			}

			cfg := a.cfg.StabilizeConfig()

			stable, module, err := stabilize.StabilizeCatalog(cmd.Context(), catalog, cfg,
				stabilize.WithLogger(a.log.WithName("stabilize")))
			if err != nil {
				return err
			}

			if err := module.Save(cfg.OutputDir); err != nil {
				return err
			}

			if out == "" {
				out = path + ".stable"
			}

			if err := cache.SaveFile(out, stable, a.cacheOptions()...); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "wrote %d types to %s (module %s)\n", len(module.Types()), cfg.OutputDir, module.ID())
			fmt.Fprintf(a.out, "wrote stabilized cache to %s\n", out)

			if needsLinkname(module) {
				fmt.Fprintln(a.out, "note: the package links to unexported members; build with -ldflags=-checklinkname=0")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "stabilized cache path (default: <cache>.stable)")

	return cmd
}

func needsLinkname(m *stabilize.Module) bool {
	for _, t := range m.Types() {
		for _, f := range t.Forwarders {
			if f.Access == stabilize.AccessLinkname {
				return true
			}
		}
	}

	return false
}
