package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/store"
	"github.com/sells-group/pavement-cli/internal/tabular"
	"github.com/sells-group/pavement-cli/internal/tracs"
)

// initStore opens the configured run history. It returns nil when history
// is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func calcParams() psv.Params {
	return psv.Params{
		CurrentYear:     cfg.Calc.CurrentYear,
		DesignLifeYears: cfg.Calc.DesignLifeYears,
		GrowthRate:      cfg.Calc.GrowthRate,
		HGVFloorPercent: cfg.Calc.HGVFloorPercent,
	}
}

func tracsCriteria() tracs.Criteria {
	return tracs.Criteria{
		MaxRutting: cfg.Tracs.MaxRutting,
		MinTexture: cfg.Tracs.MinTexture,
	}
}

// inputOptions applies per-command overrides to the configured input
// decoding.
func inputOptions(encoding, sheet string) tabular.Options {
	opts := tabular.Options{Encoding: cfg.Input.Encoding, Sheet: cfg.Input.Sheet}
	if encoding != "" {
		opts.Encoding = encoding
	}
	if sheet != "" {
		opts.Sheet = sheet
	}
	return opts
}

// writeOutput hands write stdout for an empty path or "-", else a created
// file that is closed before returning. A failed close is reported, since
// that is where a short write to disk surfaces.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "close %s", path)
		}
	}()
	return write(f)
}

// recordRun saves a run when history is enabled. Failures are logged only.
func recordRun(ctx context.Context, kind store.Kind, sources []string, rows int, output []byte) {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	if st == nil {
		return
	}
	defer st.Close() //nolint:errcheck

	run := &store.Run{Kind: kind, Sources: sources, Rows: rows, Output: output}
	if err := st.SaveRun(ctx, run); err != nil {
		zap.L().Warn("record run", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	zap.L().Info("recorded run", zap.String("run_id", run.ID), zap.String("kind", string(kind)))
}
