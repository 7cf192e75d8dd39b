package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/streams"
	"github.com/smazurov/streamctl/internal/streams/store"
)

// maxPrintedErrors bounds the per-row errors printed after an import.
const maxPrintedErrors = 5

// Settings carries the resolved application options into subcommands.
type Settings struct {
	Store         store.Options
	ImportWorkers int
	Logging       logging.Config
}

// CreateImportCmd creates the import command.
func CreateImportCmd(settings func() Settings) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Bulk-create streams from a CSV file",
		Long: `Reads a CSV file with name and url columns and stores every valid row in the registry. ` +
			`Rows fail independently; a summary and the first errors are printed. ` +
			`Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s := settings()
			s.Logging.Output = c.ErrOrStderr()
			logging.Initialize(s.Logging)

			in, closeIn, err := openInput(args[0], c.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			rows, err := streams.ParseCSV(in)
			if err != nil {
				return err
			}

			if dryRun {
				s.Store = store.Options{Backend: store.BackendMemory}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return runImport(ctx, c.OutOrStdout(), s, rows)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate rows against an empty in-memory registry without storing anything")
	return cmd
}

func runImport(ctx context.Context, out io.Writer, s Settings, rows []streams.ImportRow) error {
	registry, closeRegistry, err := store.Open(ctx, s.Store)
	if err != nil {
		return err
	}
	defer closeRegistry()

	importer := streams.NewImporter(registry, streams.ImporterOptions{Workers: s.ImportWorkers})
	result := importer.Import(ctx, rows)

	fmt.Fprintf(out, "Imported %d streams, %d failed (batch %s)\n", result.SuccessCount, result.FailureCount, result.BatchID)
	for _, line := range streams.SummarizeErrors(result.Errors, maxPrintedErrors) {
		fmt.Fprintln(out, "  "+line)
	}

	if result.SuccessCount == 0 && result.FailureCount > 0 {
		return fmt.Errorf("no rows imported")
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
