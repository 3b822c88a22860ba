package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"composition-cache/internal/composition"
)

func newInspectCmd(a *app) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect [cache]",
		Short: "Print the parts stored in a cache",
		Long: `Print one line per part stored in a cache. Tokens are not resolved, so a
cache can be inspected without the packages it was built from.

Examples:
  # Summarize the configured cache
  compcache inspect

  # Dump every part definition
  compcache inspect parts.cache --dump`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			catalog, _, err := a.load(args)
			if err != nil {
				return err
			}

			if dump {
				cfg := spew.ConfigState{
					Indent:                  "  ",
					DisablePointerAddresses: true,
					DisableCapacities:       true,
					SortKeys:                true,
				}
				cfg.Fdump(a.out, catalog.Parts())

				return nil
			}

			return printSummary(a.out, catalog)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump every part definition")

	return cmd
}

func printSummary(out io.Writer, catalog *composition.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tPOLICY\tEXPORTS\tIMPORTS\tCONSTRUCTOR")

	for _, p := range catalog.Parts() {
		var contracts []string
		for _, e := range p.Exports() {
			contracts = append(contracts, e.ContractName)
		}

		ctor := "-"
		if p.ImportingConstructor != nil {
			ctor = p.ImportingConstructor.Name
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Type, p.CreationPolicy, strings.Join(contracts, ","), strconv.Itoa(len(p.Imports())), ctor)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "%d parts, %d contracts\n", catalog.Len(), len(catalog.Contracts()))

	return err
}
