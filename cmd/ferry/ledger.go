package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/ledger"
)

// ledgerLocation returns the absolute roots of a transfer and the path of
// its ledger database. An empty dir selects the default directory inside
// the source root.
func ledgerLocation(src, dst, dir string) (absSrc, absDst, path string, err error) {
	if absSrc, err = filepath.Abs(src); err != nil {
		return "", "", "", fmt.Errorf("source: %w", err)
	}
	if absDst, err = filepath.Abs(dst); err != nil {
		return "", "", "", fmt.Errorf("destination: %w", err)
	}
	if dir == "" {
		dir = ledger.DefaultDir(absSrc)
	} else if dir, err = filepath.Abs(dir); err != nil {
		return "", "", "", fmt.Errorf("ledger dir: %w", err)
	}
	return absSrc, absDst, ledger.PathFor(dir, absSrc, absDst), nil
}

// ledgerExcludes returns the exclude patterns that keep the ledger out of
// the copied tree.
func ledgerExcludes(dir string) []string {
	if dir == "" {
		return []string{"*" + filter.Escape(ledger.DirName) + "*"}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	esc := filter.Escape(filepath.Clean(abs))
	return []string{esc, esc + string(filepath.Separator) + "*"}
}

func newLedgerCmd() *cobra.Command {
	var ledgerDir string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or clear the failure ledger of a transfer",
	}
	cmd.PersistentFlags().StringVar(&ledgerDir, "ledger-dir", "", "directory holding ledger databases (default: <source>/"+ledger.DirName+")")

	var match []string
	listCmd := &cobra.Command{
		Use:           "list <source> <destination>",
		Short:         "List entries that failed to copy",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openExistingLedger(args[0], args[1], ledgerDir)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := ledger.All(store)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), matchRecords(recs, match))
		},
	}
	listCmd.Flags().StringArrayVar(&match, "match", nil, "only list sources matching `PATTERN` (repeatable)")

	clearCmd := &cobra.Command{
		Use:           "clear <source> <destination>",
		Short:         "Forget all recorded failures so the next run starts fresh",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openExistingLedger(args[0], args[1], ledgerDir)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Path())
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

var errNoLedger = errors.New("no ledger for this transfer")

func openExistingLedger(src, dst, dir string) (*ledger.SQLite, error) {
	absSrc, absDst, path, err := ledgerLocation(src, dst, dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errNoLedger, path)
		}
		return nil, err
	}
	return ledger.OpenSQLite(path, absSrc, absDst)
}

// matchRecords keeps the records whose source matches any of patterns. No
// patterns keeps everything.
func matchRecords(recs []ledger.Record, patterns []string) []ledger.Record {
	if len(patterns) == 0 {
		return recs
	}
	var out []ledger.Record
	for _, rec := range recs {
		if filter.Match(rec.Source, patterns) {
			out = append(out, rec)
		}
	}
	return out
}

func printRecords(w io.Writer, recs []ledger.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no recorded failures")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTEMPTS\tUPDATED\tSOURCE\tLAST ERROR")
	for _, rec := range recs {
		updated := "-"
		if !rec.UpdatedAt.IsZero() {
			updated = rec.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.Attempts, updated, rec.Source, firstLine(rec.LastError))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	for i := range len(s) {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
