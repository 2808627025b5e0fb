package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Netonia/POIMapper/internal/models"
	"github.com/Netonia/POIMapper/internal/printer"
)

type listOptions struct {
	category string
	search   string
	json     bool
}

func newListCmd(global *globalOptions) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List points of interest",
		Long: `List stored POIs in insertion order.

--category keeps exact category matches ("All" keeps everything).
--search keeps POIs whose name or description contains the text,
ignoring case. Both filters may be combined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := global.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pois := a.Repo.Query(opts.category, opts.search)
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(cmd, pois)
			}
			if len(pois) == 0 {
				fmt.Fprintln(out, "No POIs found.")
				return nil
			}
			printer.POITable(out, pois)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", "", "only POIs in this category")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "case-insensitive text search")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output in JSON format")
	return cmd
}

func newGetCmd(global *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one point of interest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := global.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, ok := a.Repo.GetByID(args[0])
			if !ok {
				return notFound(args[0])
			}
			if asJSON {
				return writeJSON(cmd, p)
			}
			printer.POIDetail(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

type poiFlags struct {
	name        string
	description string
	category    string
	lat         float64
	lon         float64
}

func (f *poiFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
	cmd.Flags().StringVar(&f.category, "category", "", `category (default "Other")`)
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude in decimal degrees")
}

func newAddCmd(global *globalOptions) *cobra.Command {
	f := &poiFlags{}
	cmd := &cobra.Command{
		Use:   "add --name NAME --lat LAT --lon LON",
		Short: "Add a point of interest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.CheckCoordinates(f.lat, f.lon); err != nil {
				return err
			}

			a, err := global.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p := models.NewPOI(f.name, f.description, f.category, f.lat, f.lon)
			if err := a.Repo.Add(cmd.Context(), p); err != nil {
				return fmt.Errorf("failed to add POI: %w", err)
			}

			printer.Success("Added %s\n", p.Name)
			printer.POIDetail(cmd.OutOrStdout(), p)
			return nil
		},
	}
	f.register(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	return cmd
}

func newUpdateCmd(global *globalOptions) *cobra.Command {
	f := &poiFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a point of interest",
		Long: `Update the fields given as flags. Fields without a flag keep their
current value; the ID and creation time never change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := global.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, ok := a.Repo.GetByID(args[0])
			if !ok {
				return notFound(args[0])
			}

			changed := cmd.Flags().Changed
			if changed("name") {
				p.Name = f.name
			}
			if changed("description") {
				p.Description = f.description
			}
			if changed("category") {
				p.Category = f.category
				if p.Category == "" {
					p.Category = models.DefaultCategory
				}
			}
			if changed("lat") {
				p.Latitude = f.lat
			}
			if changed("lon") {
				p.Longitude = f.lon
			}
			if err := models.CheckCoordinates(p.Latitude, p.Longitude); err != nil {
				return err
			}

			updated, err := a.Repo.Update(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("failed to update POI: %w", err)
			}
			if !updated {
				return notFound(args[0])
			}

			printer.Success("Updated %s\n", p.Name)
			printer.POIDetail(cmd.OutOrStdout(), p)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a point of interest",
		Long:    "Delete the POI with the given ID. Deleting an unknown ID is not an error.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := global.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			_, existed := a.Repo.GetByID(args[0])
			if err := a.Repo.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete POI: %w", err)
			}
			if existed {
				printer.Success("Deleted %s\n", args[0])
			} else {
				printer.Warning("No POI with ID %s\n", args[0])
			}
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func notFound(id string) error {
	return printer.Error(
		fmt.Sprintf("POI not found: %s", id),
		"No stored point of interest has this ID.",
		[]string{"Run 'poimapper list' to see the available IDs."},
	)
}
