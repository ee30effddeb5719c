package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/store"
	"github.com/sells-group/pavement-cli/internal/tabular"
)

// psvOptions are the psv command's flags.
type psvOptions struct {
	segments  string
	reference string
	strategy  string
	output    string
	format    string
	encoding  string
	sheet     string

	// Single segment entered on the command line.
	single bool
	seg    psv.Segment
}

var psvOpts psvOptions

var psvCmd = &cobra.Command{
	Use:   "psv",
	Short: "Calculate lane traffic and required PSV per segment",
	Long: `Projects heavy goods vehicle traffic over the design life, splits it
across lanes and looks up the required Polished Stone Value for each lane.

Examples:
  # Segments file with a reference table, results to psv_results.csv
  pavement-cli psv --segments segments.xlsx --reference psv_table.csv --output psv_results.csv

  # One segment, band lookup against a YAML table
  pavement-cli psv --aadt 10000 --hgv 15 --year 2020 --lanes 2 \
    --site-category A --level 1 --reference reference.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("psv"); err != nil {
			return err
		}
		psvOpts.single = cmd.Flags().Changed("aadt")
		return runPSV(cmd.Context(), psvOpts, cmd.OutOrStdout())
	},
}

func runPSV(ctx context.Context, opts psvOptions, stdout io.Writer) error {
	if opts.segments == "" && !opts.single {
		return eris.New("psv: --segments or --aadt is required")
	}
	if opts.format != "" && opts.format != "csv" && opts.format != "json" {
		return eris.Errorf("psv: unknown output format %q (want csv or json)", opts.format)
	}

	strategyName := cfg.Reference.Strategy
	if opts.strategy != "" {
		strategyName = opts.strategy
	}
	strategy, err := psv.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	input := inputOptions(opts.encoding, opts.sheet)
	// Lookups need both keys on every segment.
	withKeys := opts.reference != ""

	var (
		segs    []psv.Segment
		sources []string
	)
	if opts.segments != "" {
		segs, err = psv.OpenSegments(ctx, opts.segments, filepath.Base(opts.segments), input, withKeys)
		if err != nil {
			return err
		}
		sources = append(sources, filepath.Base(opts.segments))
	} else {
		if opts.seg.LinkSection == "" {
			opts.seg.LinkSection = "Row 1"
		}
		if err := opts.seg.Validate(); err != nil {
			return err
		}
		if withKeys {
			if err := requireKeyFlags(opts.seg); err != nil {
				return err
			}
		}
		segs = []psv.Segment{opts.seg}
		sources = append(sources, "command line")
	}

	calcOpts := []psv.Option{psv.WithConcurrency(cfg.Calc.Concurrency)}
	if opts.reference != "" {
		ref, err := psv.OpenReference(ctx, opts.reference, filepath.Base(opts.reference), input)
		if err != nil {
			return err
		}
		zap.L().Info("loaded reference table",
			zap.String("path", opts.reference),
			zap.Int("entries", ref.Len()),
			zap.String("strategy", string(strategy)),
		)
		calcOpts = append(calcOpts, psv.WithReference(ref, strategy))
		sources = append(sources, filepath.Base(opts.reference))
	}

	results, err := psv.NewCalculator(calcParams(), calcOpts...).ComputeAll(ctx, segs)
	if err != nil {
		return err
	}

	var csvBuf bytes.Buffer
	if err := psv.WriteResults(&csvBuf, results); err != nil {
		return err
	}

	err = writeOutput(opts.output, stdout, func(out io.Writer) error {
		switch opts.format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(results), "psv: encode results")
		default:
			_, err := out.Write(csvBuf.Bytes())
			return eris.Wrap(err, "psv: write results")
		}
	})
	if err != nil {
		return err
	}

	zap.L().Info("psv complete",
		zap.Int("segments", len(results)),
		zap.String("output", opts.output),
	)
	recordRun(ctx, store.KindPSV, sources, len(results), csvBuf.Bytes())
	return nil
}

// requireKeyFlags reports the lookup keys missing from a command line
// segment, named as the segments file columns they stand for.
func requireKeyFlags(seg psv.Segment) error {
	var missing []string
	if strings.TrimSpace(seg.SiteCategory) == "" {
		missing = append(missing, "site_category")
	}
	if strings.TrimSpace(seg.DesignLevel) == "" {
		missing = append(missing, "design_input_level")
	}
	if len(missing) > 0 {
		return &tabular.MissingColumnsError{Source: "command line", Columns: missing}
	}
	return nil
}

func init() {
	f := psvCmd.Flags()
	f.StringVar(&psvOpts.segments, "segments", "", "segments file (.csv, .xlsx)")
	f.StringVar(&psvOpts.reference, "reference", "", "PSV reference table (.csv, .xlsx, .yaml)")
	f.StringVar(&psvOpts.strategy, "strategy", "", "reference lookup: exact or band (default from config)")
	f.StringVarP(&psvOpts.output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&psvOpts.format, "format", "csv", "output format: csv or json")
	f.StringVar(&psvOpts.encoding, "encoding", "", "CSV text encoding, e.g. windows-1252 (default from config)")
	f.StringVar(&psvOpts.sheet, "sheet", "", "XLSX sheet name (default first sheet)")

	f.Float64Var(&psvOpts.seg.AADT, "aadt", 0, "single segment: annual average daily traffic")
	f.Float64Var(&psvOpts.seg.HGVPercent, "hgv", 0, "single segment: HGV share of AADT in percent")
	f.IntVar(&psvOpts.seg.SurveyYear, "year", 0, "single segment: survey year (0 = no projection)")
	f.IntVar(&psvOpts.seg.LaneCount, "lanes", 1, "single segment: number of lanes")
	f.StringVar(&psvOpts.seg.SiteCategory, "site-category", "", "single segment: site category")
	f.StringVar(&psvOpts.seg.DesignLevel, "level", "", "single segment: design input level")
	f.StringVar(&psvOpts.seg.LinkSection, "link", "", "single segment: link section label")

	rootCmd.AddCommand(psvCmd)
}
