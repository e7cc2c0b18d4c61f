package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"attractions-crawler/internal/db"
	"attractions-crawler/internal/scraper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tools: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:          "tools",
		Short:        "Maintenance commands for the attractions database",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "./Storage/attractions.db", "Path to SQLite database")

	open := func() (*db.DB, error) {
		database, err := db.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return database, nil
	}

	cmd.AddCommand(newStatsCmd(open), newExportCmd(open), newImagesCmd(open))
	return cmd
}

type opener func() (*db.DB, error)

// stats prints the row count and the page the next crawl resumes from
func newStatsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored attraction counts and the resume page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			count, err := database.CountAttractions(ctx)
			if err != nil {
				return fmt.Errorf("count attractions: %w", err)
			}
			last, err := database.LastScrapedPage(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "attractions:  %d\n", count)
			fmt.Fprintf(out, "last page:    %d\n", last)
			fmt.Fprintf(out, "resume page:  %d\n", last+1)
			return nil
		},
	}
}

func newExportCmd(open opener) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all attractions as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()

			attractions, err := database.ListAttractions(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(attractions); err != nil {
				return fmt.Errorf("encode attractions: %w", err)
			}
			if w != cmd.OutOrStdout() {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d attractions to %s\n", len(attractions), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

// images writes stored image blobs back to disk, one file per attraction
func newImagesCmd(open opener) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Extract stored images into a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := os.MkdirAll(outputDir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			ctx := cmd.Context()
			attractions, err := database.ListAttractions(ctx)
			if err != nil {
				return err
			}

			written := 0
			for _, a := range attractions {
				image, err := database.GetAttractionImage(ctx, a.ID)
				if err != nil {
					return err
				}
				if len(image) == 0 {
					continue
				}
				name := fmt.Sprintf("%d_%s.jpg", a.ID, scraper.SanitizeFilename(a.Title))
				if err := os.WriteFile(filepath.Join(outputDir, name), image, 0o640); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				written++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d images to %s\n", written, len(attractions), outputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "./Storage/exported_images", "Output directory")
	return cmd
}
