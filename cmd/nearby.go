package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kilianp07/foodredist/app"
	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/model"
)

var nearbyOpts struct {
	lat, lon, quantity, maxKM float64
	categories                []string
	openNow                   bool
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List charities around a location, closest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := allocation.NearbyQuery{
			Origin:        model.Coordinate{Lat: nearbyOpts.lat, Lon: nearbyOpts.lon},
			Categories:    model.NewCategorySet(nearbyOpts.categories...),
			MinCapacityKG: nearbyOpts.quantity,
			MaxDistanceKM: nearbyOpts.maxKM,
			OpenOnly:      nearbyOpts.openNow,
		}
		if err := q.Origin.Validate(); err != nil {
			return err
		}
		return withService(cmd.Context(), cmd, func(svc *app.Service) error {
			matches, err := svc.Nearby(cmd.Context(), q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		})
	},
}

func init() {
	f := nearbyCmd.Flags()
	f.Float64Var(&nearbyOpts.lat, "lat", 0, "latitude of the donor")
	f.Float64Var(&nearbyOpts.lon, "lon", 0, "longitude of the donor")
	f.StringSliceVar(&nearbyOpts.categories, "category", nil, "accepted food categories")
	f.Float64Var(&nearbyOpts.quantity, "quantity", 0, "minimum available capacity in kg")
	f.Float64Var(&nearbyOpts.maxKM, "max-km", 0, "search radius in km (default 50)")
	f.BoolVar(&nearbyOpts.openNow, "open-now", false, "only charities open right now")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(nearbyCmd)
}
