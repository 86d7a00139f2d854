package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"idealista-pricing/models"
	"idealista-pricing/services"
	"idealista-pricing/storage"
)

type prepareOptions struct {
	dumpDir      string
	input        string
	output       string
	modelInput   string
	postgres     bool
	correlations int
}

func prepareCmd() *cobra.Command {
	var opts prepareOptions

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Merge search dumps into a model-ready dataset",
		Long: `Read every search dump, flatten the nested listing fields, convert floors
to numbers, fill missing floor and hasLift values from the same neighborhood,
district or city, encode categorical columns and write the result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.dumpDir != "" {
				cfg.DumpDir = opts.dumpDir
			}
			if opts.output != "" {
				cfg.CSVOutputPath = opts.output
			}
			return runPrepare(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dumpDir, "dump-dir", "", "directory with page_<n>.json dumps; overrides DUMP_DIR")
	cmd.Flags().StringVar(&opts.input, "input", "", "read a single dump file instead of the dump directory")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV output path; overrides CSV_OUTPUT_PATH")
	cmd.Flags().StringVar(&opts.modelInput, "model-input", "", "also write the model feature matrix to this CSV path")
	cmd.Flags().BoolVar(&opts.postgres, "postgres", false, "store the prepared listings in PostgreSQL")
	cmd.Flags().IntVar(&opts.correlations, "correlations", 20, "print the N strongest column correlations; 0 disables")
	return cmd
}

func runPrepare(cmd *cobra.Command, opts prepareOptions) error {
	collections, err := loadDumps(opts)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		return fmt.Errorf("no dumps found in %s", cfg.DumpDir)
	}

	table := services.NewDatasetBuilder(logger).Build(collections...)
	if table.Len() == 0 {
		return fmt.Errorf("dumps contain no listings")
	}

	features := services.NewFeaturePreparer(logger)
	if table.HasColumn(models.ColFloor) {
		if err := features.FloorColumnToNumber(table); err != nil {
			return err
		}
	}

	for _, c := range []string{cfg.NeighborhoodColumn, cfg.DistrictColumn} {
		if !table.HasColumn(c) {
			logger.Warn("[prepare] Column %q not found, imputation falls back to city level", c)
			table.SetColumn(c, func(models.Row) any { return nil })
		}
	}

	imputer := services.NewImputer(logger, cfg.NeighborhoodColumn, cfg.DistrictColumn)
	for _, fillColumn := range []func(*models.Table) (*services.ImputeResult, error){imputer.FillFloor, imputer.FillHasLift} {
		res, err := fillColumn(table)
		if err != nil {
			logger.Warn("[prepare] Imputation skipped: %v", err)
			continue
		}
		if len(res.Unresolved) > 0 {
			logger.Warn("[prepare] %s: rows %v have no donor and stay missing", res.Column, res.Unresolved)
		}
	}

	if err := encodeCategoricals(features, table); err != nil {
		return err
	}
	features.BoolsToNumbers(table)

	out := cmd.OutOrStdout()
	nulls := services.NewNullAnalyzer(logger)
	nulls.Print(out, nulls.Analyze(table))
	if opts.correlations > 0 {
		corr := services.NewCorrelationAnalyzer(logger)
		corr.Print(out, corr.Analyze(table), opts.correlations)
	}

	if err := writeCSV(cfg.CSVOutputPath, table); err != nil {
		return err
	}
	logger.Info("[prepare] %d listings written to %s", table.Len(), cfg.CSVOutputPath)

	if opts.modelInput != "" {
		matrix, err := services.ModelInputTable(table)
		if err != nil {
			return err
		}
		if err := writeCSV(opts.modelInput, matrix); err != nil {
			return err
		}
		logger.Info("[prepare] Model input written to %s", opts.modelInput)
	}

	if opts.postgres {
		pg, err := storage.NewPostgresWriter(cmd.Context(), cfg.DSN())
		if err != nil {
			return err
		}
		defer pg.Close()

		var sink storage.ListingWriter = pg
		listings := storage.ListingsFromTable(table, cfg.NeighborhoodColumn, cfg.DistrictColumn)
		if err := sink.Write(cmd.Context(), listings); err != nil {
			return err
		}
		stored, err := pg.FetchAll(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("[prepare] PostgreSQL listings table holds %d rows", len(stored))
	}
	return nil
}

func loadDumps(opts prepareOptions) ([][]map[string]any, error) {
	if opts.input != "" {
		records, err := storage.ReadElementList(opts.input)
		if err != nil {
			return nil, err
		}
		return [][]map[string]any{records}, nil
	}
	return storage.ReadElementLists(cfg.DumpDir)
}

// encodeCategoricals one-hot encodes the property type and hashes the
// geography codes into the columns the price model reads.
func encodeCategoricals(features *services.FeaturePreparer, table *models.Table) error {
	if table.HasColumn(models.ColPropertyType) {
		if _, err := features.OneHot(table, models.ColPropertyType, models.ColPropertyType); err != nil {
			return err
		}
	}
	for _, c := range []string{"propertyType_flat", "propertyType_chalet"} {
		if !table.HasColumn(c) {
			table.SetColumn(c, func(models.Row) any { return 0.0 })
		}
	}

	if err := features.HashColumn(table, cfg.NeighborhoodColumn, cfg.NeighborhoodHashWidth, "codbar"); err != nil {
		return err
	}
	return features.HashColumn(table, cfg.DistrictColumn, cfg.DistrictHashWidth, "coddistrit")
}

func writeCSV(path string, t *models.Table) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	return writeTable(w, t)
}

func writeTable(w storage.TableWriter, t *models.Table) error {
	if err := w.WriteTable(t); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
