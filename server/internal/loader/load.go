package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// Tables names the source objects of a Dataset. Company and Performance are
// optional and may be empty.
type Tables struct {
	Type        string
	Company     string
	Benchmark   string
	Performance string
}

// Load fetches every table from src concurrently and builds the Dataset.
func Load(ctx context.Context, src Source, names Tables, schema table.Schema) (*table.Dataset, error) {
	var typeF, companyF, benchF, perfF *table.Frame

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(name string, optional bool, dst **table.Frame) {
		if name == "" {
			return
		}
		g.Go(func() error {
			f, err := src.Fetch(gctx, name)
			if optional && errors.Is(err, ErrNotFound) {
				slog.Warn("loader: optional table missing", "table", name, "source", src.String())
				return nil
			}
			if err != nil {
				return fmt.Errorf("loader: fetch %s: %w", name, err)
			}
			*dst = f
			return nil
		})
	}
	fetch(names.Type, false, &typeF)
	fetch(names.Company, true, &companyF)
	fetch(names.Benchmark, false, &benchF)
	fetch(names.Performance, true, &perfF)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if typeF == nil || benchF == nil {
		return nil, errors.New("loader: type and benchmark tables are required")
	}

	ds := &table.Dataset{}
	var err error
	if ds.Type, err = table.BuildMetricTable(typeF, schema); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", names.Type, err)
	}
	if companyF != nil {
		if ds.Company, err = table.BuildMetricTable(companyF, schema); err != nil {
			return nil, fmt.Errorf("loader: %s: %w", names.Company, err)
		}
	}
	if ds.Benchmark, err = table.BuildBenchmarkTable(benchF); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", names.Benchmark, err)
	}
	if perfF != nil {
		if ds.Performance, err = table.BuildPerformanceView(perfF); err != nil {
			return nil, fmt.Errorf("loader: %s: %w", names.Performance, err)
		}
	}

	slog.Info("loader: dataset loaded",
		"source", src.String(),
		"rows", ds.Type.Len(),
		"stores", len(ds.Type.Stores()),
		"periods", len(ds.Type.Periods()),
		"company_table", ds.Company != nil,
		"performance_view", ds.Performance != nil,
	)
	return ds, nil
}
