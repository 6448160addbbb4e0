package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export references or sessions",
	Long: `Export saved references (default) or full session transcripts.

Examples:
  # References as pretty JSON to stdout
  hearmem export

  # References as CSV to a file
  hearmem export --format csv --out refs.csv

  # Session transcripts as Markdown
  hearmem export --sessions --format markdown --out diary.md

  # Re-import a JSON export
  hearmem export import refs.json`,
	RunE: runExport,
}

var exportImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON reference export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportImportCmd)

	exportCmd.Flags().StringP("format", "f", "json", "Output format (json, csv, markdown)")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().Bool("sessions", false, "Export session transcripts instead of references")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	sessions, _ := cmd.Flags().GetBool("sessions")

	var data []byte
	if sessions {
		switch format {
		case "json":
			data, err = export.SessionsJSON(a.Sessions.Sessions())
		case "csv":
			data, err = export.SessionsCSV(a.Sessions.Sessions())
		case "markdown":
			data = export.SessionsMarkdown(a.Sessions.Sessions())
		default:
			return fmt.Errorf("unknown session export format: %s", format)
		}
	} else {
		switch format {
		case "json":
			data, err = export.ReferencesJSON(a.References.References(), a.References.Collections())
		case "csv":
			data, err = export.ReferencesCSV(a.References.References())
		case "markdown":
			data = export.ReferencesMarkdown(a.References.References(), a.References.Collections())
		default:
			return fmt.Errorf("unknown format: %s", format)
		}
	}
	if err != nil {
		return err
	}
	return writeOutput(data, out)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	bundle, err := export.ParseReferences(data)
	if err != nil {
		return fmt.Errorf("parsing import file: %w", err)
	}

	a.References.Replace(ctx, bundle.References, bundle.Collections)
	if !quiet {
		fmt.Printf("Imported %d references, %d collections\n",
			len(bundle.References), len(bundle.Collections))
	}
	return nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(data []byte, path string) error {
	if path == "" {
		fmt.Print(string(data))
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Written to: %s\n", path)
	return nil
}
