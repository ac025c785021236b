package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/spf13/cobra"
)

func searchCommand() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search stations by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			page := app.stations.FetchByName(cmd.Context(), strings.Join(args, " "))
			page = fetchPages(app.stations, page, pages)
			return printStations(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to list")
	return cmd
}

func countryCommand() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "country <country>",
		Short: "List stations for a country",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			page := app.stations.FetchByCountry(cmd.Context(), strings.Join(args, " "))
			page = fetchPages(app.stations, page, pages)
			return printStations(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to list")
	return cmd
}

func fetchPages(svc *service.StationService, page service.Page, pages int) service.Page {
	for i := 1; i < pages && page.HasMore; i++ {
		page = svc.FetchMore()
	}
	return page
}

func printStations(w io.Writer, page service.Page) error {
	if page.Status == service.StatusFailed {
		return errors.New(page.Message)
	}
	if len(page.Stations) == 0 {
		_, err := fmt.Fprintln(w, page.Message)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tCOUNTRY\tTAGS\tSOURCE")
	for i, st := range page.Stations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, st.Name, dash(st.Country), dash(strings.Join(st.TagList(), ", ")), st.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.HasMore {
		_, err := fmt.Fprintf(w, "\nShowing %d stations. Use --pages to list more.\n", len(page.Stations))
		return err
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// pickStation returns the 1-based index entry of the page.
func pickStation(page service.Page, index int) (station.Station, error) {
	if index < 1 || index > len(page.Stations) {
		return station.Station{}, fmt.Errorf("index %d out of range (1-%d)", index, len(page.Stations))
	}
	return page.Stations[index-1], nil
}
