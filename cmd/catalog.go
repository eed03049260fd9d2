package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Import, export and validate the question catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a catalog file and publish it to the store",
	Long: `Validate a catalog file and publish it to the store, replacing the
current catalog. Knowledge state is kept: objectives and questions are
matched by ID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := readCatalog(args[0])
		if err != nil {
			return err
		}
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Catalog().Replace(cmd.Context(), cat); err != nil {
			return fmt.Errorf("publish catalog: %w", err)
		}
		printCounts(cmd.OutOrStdout(), "Imported", cat)
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the published catalog to stdout or a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		name, _ := cmd.Flags().GetString("format")
		format, err := exportFormat(name, out)
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		cat, err := storedCatalog(cmd.Context(), st)
		if err != nil {
			return err
		}

		if out == "" {
			return catalog.Export(cmd.OutOrStdout(), cat, format, time.Now())
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := catalog.Export(f, cat, format, time.Now()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printCounts(cmd.ErrOrStderr(), "Exported", cat)
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file without publishing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := readCatalog(args[0])
		if err != nil {
			return err
		}
		printCounts(cmd.OutOrStdout(), "Valid", cat)
		return nil
	},
}

func init() {
	catalogExportCmd.Flags().String("format", "", "output format: yaml or json (default from --out extension, else yaml)")
	catalogExportCmd.Flags().StringP("out", "o", "", "write to file instead of stdout")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogExportCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}

func readCatalog(path string) (*bank.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cat, err := catalog.Import(f, bank.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func exportFormat(name, out string) (bank.Format, error) {
	switch {
	case name != "":
		return bank.ParseFormat(name)
	case out != "":
		return bank.FormatFromPath(out), nil
	default:
		return bank.FormatYAML, nil
	}
}

func printCounts(w io.Writer, verb string, cat *bank.Catalog) {
	sections, objectives, questions := cat.Counts()
	fmt.Fprintf(w, "%s %d sections, %d objectives, %d questions\n", verb, sections, objectives, questions)
}
