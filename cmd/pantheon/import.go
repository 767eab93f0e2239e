package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/pantheon/internal/importer"
)

// maxPrintedErrors caps the row errors echoed after an import; the rest are in the log.
const maxPrintedErrors = 20

var (
	updateExisting bool
	delimiter      string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import figures from a delimited text or .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if cmd.Flags().Changed("delimiter") {
			cfg.Import.Delimiter = delimiter
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bar := newProgressBar("Importing ")
		im := importer.New(db, importer.Options{
			UpdateExisting: updateExisting,
			Comma:          cfg.DelimiterRune(),
			ProgressEvery:  cfg.Import.ProgressEvery,
			OnRecord:       func(n int) { bar.SetCurrent(int64(n)) },
		})

		result, err := im.ImportFile(ctx, args[0])
		bar.Finish()
		if err != nil {
			return err
		}

		fmt.Println("\nImport complete:")
		fmt.Printf("  Records read: %s\n", humanize.Comma(int64(result.Processed)))
		fmt.Printf("  Created: %s\n", humanize.Comma(int64(result.Created)))
		fmt.Printf("  Updated: %s\n", humanize.Comma(int64(result.Updated)))
		fmt.Printf("  Unchanged: %s\n", humanize.Comma(int64(result.Unchanged)))
		fmt.Printf("  Skipped (no article_id): %s\n", humanize.Comma(int64(result.Skipped)))
		fmt.Printf("  Failed: %s\n", humanize.Comma(int64(result.Failed)))

		if len(result.Errors) > 0 {
			fmt.Println("\nRow errors:")
			for i, rowErr := range result.Errors {
				if i == maxPrintedErrors {
					fmt.Printf("  ... and %d more\n", len(result.Errors)-maxPrintedErrors)
					break
				}
				fmt.Printf("  %v\n", rowErr)
			}
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&updateExisting, "update-existing", false, "Overwrite figures whose article_id already exists")
	importCmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", `Field delimiter for text files ("tab" or \t for tab)`)
}

// newProgressBar starts a counter-style bar; the record total is not known up front.
func newProgressBar(prefix string) *pb.ProgressBar {
	tmpl := `{{string . "prefix"}}{{counters . }} records {{speed . }}`
	bar := pb.ProgressBarTemplate(tmpl).Start64(0)
	bar.Set("prefix", prefix)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}
