package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Netonia/POIMapper/internal/export"
	"github.com/Netonia/POIMapper/internal/printer"
)

type exportOptions struct {
	format       string
	template     string
	templateFile string
	output       string
	category     string
	search       string
}

func newExportCmd(global *globalOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export points of interest",
		Long: `Export the (optionally filtered) POI collection.

Formats:
  json      pretty-printed JSON array
  csv       Name,Description,Category,Latitude,Longitude,CreatedAt
  geojson   FeatureCollection of points
  template  one line per POI rendered with --template or --template-file

Template variables: name, description, category, lat, lon, created, plus
the record fields (Id, Name, ...) and the record itself as poi.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, global, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(export.FormatJSON), "json, csv, geojson or template")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "template text (implies --format template)")
	cmd.Flags().StringVar(&opts.templateFile, "template-file", "", "read the template from a file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&opts.category, "category", "", "only POIs in this category")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "case-insensitive text search")
	cmd.MarkFlagsMutuallyExclusive("template", "template-file")
	return cmd
}

func runExport(cmd *cobra.Command, global *globalOptions, opts *exportOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	tmpl := opts.template
	if opts.templateFile != "" {
		data, err := os.ReadFile(opts.templateFile)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		tmpl = string(data)
	}
	if tmpl != "" || opts.templateFile != "" {
		format = export.FormatTemplate
	}

	a, err := global.openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pois := a.Repo.Query(opts.category, opts.search)

	var out string
	switch format {
	case export.FormatJSON:
		out, err = a.Exporter.ExportAsJSON(pois)
	case export.FormatCSV:
		out = a.Exporter.ExportAsCSV(pois)
	case export.FormatGeoJSON:
		out, err = a.Exporter.ExportAsGeoJSON(pois)
	case export.FormatTemplate:
		out = a.Exporter.ExportWithTemplate(pois, tmpl)
		if resultErr := export.ResultError(out); resultErr != nil {
			return printer.Error("Template export failed", out, []string{
				"Check the template syntax, e.g. {{ name | upcase }} or {% if category == \"Park\" %}...{% endif %}.",
			})
		}
	}
	if err != nil {
		return err
	}

	if opts.output == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	printer.Success("Exported %d POIs as %s to %s\n", len(pois), format, opts.output)
	return nil
}
