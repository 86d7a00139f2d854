package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"idealista-pricing/scraper/idealista"
	"idealista-pricing/services"
	"idealista-pricing/storage"
)

func scrapeCmd() *cobra.Command {
	var (
		urlsFile string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Render listing pages in Chrome and extract their details",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string{}, args...)
			if urlsFile != "" {
				fromFile, err := readURLs(urlsFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no listing URLs given; pass them as arguments or with --urls-file")
			}
			if output != "" {
				cfg.CSVOutputPath = output
			}
			return runScrape(cmd, urls)
		},
	}

	cmd.Flags().StringVar(&urlsFile, "urls-file", "", "file with one listing URL per line")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV output path; overrides CSV_OUTPUT_PATH")
	return cmd
}

func runScrape(cmd *cobra.Command, urls []string) error {
	renderer, err := idealista.NewChromeRenderer(logger, cfg.ChromeBin)
	if err != nil {
		return err
	}
	defer renderer.Close()

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scraping listings"),
		progressbar.OptionClearOnFinish(),
	)

	s := idealista.New(cfg, logger, renderer)
	listings, failures := s.Scrape(cmd.Context(), urls, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if len(listings) == 0 {
		return fmt.Errorf("no listing could be extracted (%d failed)", len(failures))
	}

	table := services.NewDatasetBuilder(logger).FromScraped(listings)

	w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteTable(table); err != nil {
		return err
	}

	logger.Info("[scrape] %d listings written to %s (%d pages failed)", table.Len(), cfg.CSVOutputPath, len(failures))
	return nil
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read URL list: %w", err)
	}
	return urls, nil
}
