package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

var lookupCmd = &cobra.Command{
	Use:     "lookup <latitude> <longitude>",
	Short:   "Resolve a coordinate pair to its NWS forecast zone.",
	Example: "  nwszones lookup 39.7456 -97.0892",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseCoordinates(args[0], args[1])
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		client := newClient()

		point, err := client.LookupPoint(ctx, lat, lon)
		if err != nil {
			log.Errorw("Point lookup failed", "latitude", lat, "longitude", lon, "error", err)
			return err
		}

		zone, err := point.ZoneCode()
		if err != nil {
			return err
		}
		if !widget.IsValidZone(zone) {
			return fmt.Errorf("invalid zone format: %s", zone)
		}

		name := notAvailable
		if resp, err := client.FetchZone(ctx, zone); err != nil {
			log.Warnw("Unable to fetch zone name", "zone", zone, "error", err)
		} else if resp.Properties.Name != "" {
			name = resp.Properties.Name
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", zone, name)
		return err
	},
}

func init() {
	// Flags end at the first coordinate so a negative longitude is not read as a shorthand flag
	lookupCmd.Flags().SetInterspersed(false)
}

// parseCoordinates parses and range-checks a latitude/longitude pair.
func parseCoordinates(latArg, lonArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", latArg, err)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", lonArg, err)
	}

	if err := widget.ValidateCoordinatePair(lat, lon); err != nil {
		return 0, 0, err
	}

	return lat, lon, nil
}
