package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/store"
	"github.com/sells-group/pavement-cli/internal/tabular"
	"github.com/sells-group/pavement-cli/internal/tracs"
)

type tracsOptions struct {
	file     string
	link     string
	output   string
	encoding string
	sheet    string
}

var tracsOpts tracsOptions

var tracsCmd = &cobra.Command{
	Use:   "tracs",
	Short: "List failing sections in a TRACS survey",
	Long: `Filters a TRACS condition survey to the lengths where rutting is above
tracs.max_rutting and texture depth is below tracs.min_texture.

Example:
  pavement-cli tracs --file survey.xlsx --link 1800A1/123`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("tracs"); err != nil {
			return err
		}
		return runTRACS(cmd.Context(), tracsOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runTRACS(ctx context.Context, opts tracsOptions, stdout, stderr io.Writer) error {
	if opts.file == "" {
		return eris.New("tracs: --file is required")
	}

	t, err := tabular.Open(ctx, opts.file, inputOptions(opts.encoding, opts.sheet))
	if err != nil {
		return err
	}
	sections, err := tracs.Load(t)
	if err != nil {
		return err
	}

	failing := tracs.FindFailing(sections, opts.link, tracsCriteria())
	if len(failing) == 0 {
		fmt.Fprintln(stderr, "No failing sections found for the given link section.") //nolint:errcheck
	}

	var buf bytes.Buffer
	if err := tracs.WriteCSV(&buf, failing); err != nil {
		return err
	}

	err = writeOutput(opts.output, stdout, func(out io.Writer) error {
		_, err := out.Write(buf.Bytes())
		return eris.Wrap(err, "tracs: write sections")
	})
	if err != nil {
		return err
	}

	zap.L().Info("tracs complete",
		zap.String("link_section", opts.link),
		zap.Int("surveyed", len(sections)),
		zap.Int("failing", len(failing)),
	)
	recordRun(ctx, store.KindTRACS, []string{filepath.Base(opts.file)}, len(failing), buf.Bytes())
	return nil
}

func init() {
	f := tracsCmd.Flags()
	f.StringVar(&tracsOpts.file, "file", "", "TRACS survey file (.csv, .xlsx)")
	f.StringVar(&tracsOpts.link, "link", "", "link section to search (default all)")
	f.StringVarP(&tracsOpts.output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&tracsOpts.encoding, "encoding", "", "CSV text encoding (default from config)")
	f.StringVar(&tracsOpts.sheet, "sheet", "", "XLSX sheet name (default first sheet)")

	rootCmd.AddCommand(tracsCmd)
}
