package cmd

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
)

const notAvailable = "N/A"

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every NWS zone as a Markdown table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		log.Debugw("Fetching zones", "baseURL", baseURL)

		zones, err := newClient().ListZones(ctx)
		if err != nil {
			log.Errorw("Failed to retrieve NWS zone data", "error", err)
			return err
		}

		log.Debugw("Fetched zones", "count", len(zones))

		_, err = fmt.Fprintln(cmd.OutOrStdout(), FormatZoneTable(zones))
		return err
	},
}

// FormatZoneTable renders zones as an aligned Markdown table with the
// columns State, Name and Zone ID, sorted by state then name. Missing
// values are shown as N/A.
func FormatZoneTable(zones []nws.ZoneProperties) string {
	if len(zones) == 0 {
		return "No data to display."
	}

	headers := []string{"State", "Name", "Zone ID"}

	rows := make([][]string, 0, len(zones))
	for _, zone := range zones {
		rows = append(rows, []string{orNA(zone.State), orNA(zone.Name), orNA(zone.ID)})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = strings.Repeat("-", widths[i])
	}

	lines := []string{formatRow(headers, widths), strings.Join(separators, " | ")}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths))
	}

	return strings.Join(lines, "\n")
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
	}
	return strings.Join(padded, " | ")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
