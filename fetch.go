package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"idealista-pricing/provider/idealista"
	"idealista-pricing/storage"
)

func fetchCmd() *cobra.Command {
	var (
		pages  int
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download search result pages from the Idealista API",
		Long: `Authenticate against the Idealista API (or reuse IDEALISTA_TOKEN) and
download consecutive search pages. The elementList of every page is saved as
<dump-dir>/page_<n>.json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("pages") {
				cfg.PagesToFetch = pages
			}
			if outDir != "" {
				cfg.DumpDir = outDir
			}
			if cfg.PagesToFetch < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			return runFetch(cmd)
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 0, "number of pages to fetch; overrides PAGES_TO_FETCH")
	cmd.Flags().StringVar(&outDir, "dump-dir", "", "output directory; overrides DUMP_DIR")
	return cmd
}

func runFetch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	client := idealista.NewClient(logger, idealista.WithEndpoints(cfg.TokenURL, cfg.SearchURL))

	if cfg.APIToken != "" {
		client.SetToken(cfg.APIToken)
		logger.Info("[fetch] Using token from IDEALISTA_TOKEN")
	} else {
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return fmt.Errorf("set IDEALISTA_API_KEY and IDEALISTA_API_SECRET, or IDEALISTA_TOKEN")
		}
		if _, err := client.Authenticate(ctx, cfg.APIKey, cfg.APISecret); err != nil {
			return err
		}
		logger.Info("[fetch] Authenticated")
	}

	params := idealista.DefaultSearchParams(cfg.Center)
	params.Country = cfg.Country
	params.MaxItems = cfg.MaxItems
	params.Distance = cfg.Distance
	params.PropertyType = cfg.PropertyType
	params.Operation = cfg.Operation

	saved := 0
	for page := 1; page <= cfg.PagesToFetch; page++ {
		params.NumPage = page
		result, err := client.Search(ctx, params)
		if err != nil {
			return err
		}
		if result == nil {
			logger.Warn("[fetch] Page %d returned no usable result, skipping", page)
			continue
		}

		s := idealista.Summary(result)
		logger.Info("[fetch] Page %d/%d: %d elements (total %d, %d per page)",
			s.ActualPage, s.TotalPages, len(result.ElementList), s.Total, s.ItemsPerPage)

		path := filepath.Join(cfg.DumpDir, fmt.Sprintf("page_%d.json", page))
		if err := storage.WriteElementList(path, result); err != nil {
			return err
		}
		saved++

		if s.TotalPages > 0 && page >= s.TotalPages {
			logger.Info("[fetch] Reached the last page")
			break
		}
	}

	logger.Info("[fetch] Saved %d page(s) to %s", saved, cfg.DumpDir)
	return nil
}
