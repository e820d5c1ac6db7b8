package main

import (
	"fmt"
	"math/rand"

	"github.com/jaswdr/faker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"foodDelivery/internal/db"
	"foodDelivery/models"
	"foodDelivery/repository"
)

var seedFlags struct {
	restaurants int
	items       int
	riders      int
	lat, lng    float64
	seed        int64
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo restaurants, menus and riders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		store := repository.NewStore(d)
		fake := faker.NewWithSeed(rand.NewSource(seedFlags.seed))
		jitter := func() float64 { return fake.Float64(4, -2, 2) / 100 }

		total := seedFlags.restaurants*(1+seedFlags.items) + seedFlags.riders
		bar := progressbar.Default(int64(total), "seeding")
		for i := 0; i < seedFlags.restaurants; i++ {
			rs, err := store.Catalog.CreateRestaurant(ctx, &models.Restaurant{
				Name: fake.Company().Name(),
				Lat:  seedFlags.lat + jitter(),
				Lng:  seedFlags.lng + jitter(),
			})
			if err != nil {
				return fmt.Errorf("create restaurant: %w", err)
			}
			_ = bar.Add(1)
			for j := 0; j < seedFlags.items; j++ {
				price := int64(fake.IntBetween(300, 2500))
				m := &models.MenuItem{RestaurantID: rs.ID, Name: fake.Lorem().Word() + " " + fake.Lorem().Word(), Price: price}
				if fake.Bool() && fake.Bool() {
					disc := price * 9 / 10
					m.DiscountedPrice = &disc
				}
				if _, err := store.Catalog.CreateMenuItem(ctx, m); err != nil {
					return fmt.Errorf("create menu item: %w", err)
				}
				_ = bar.Add(1)
			}
		}
		for i := 0; i < seedFlags.riders; i++ {
			if _, err := store.Riders.Create(ctx, &models.Rider{
				Name:         fake.Person().Name(),
				Availability: models.RiderOnline,
				Lat:          seedFlags.lat + jitter(),
				Lng:          seedFlags.lng + jitter(),
			}); err != nil {
				return fmt.Errorf("create rider: %w", err)
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		fmt.Fprintf(cmd.OutOrStdout(), "\nseeded %d restaurants, %d menu items, %d riders\n",
			seedFlags.restaurants, seedFlags.restaurants*seedFlags.items, seedFlags.riders)
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedFlags.restaurants, "restaurants", 10, "number of restaurants")
	f.IntVar(&seedFlags.items, "items", 8, "menu items per restaurant")
	f.IntVar(&seedFlags.riders, "riders", 20, "number of riders")
	f.Float64Var(&seedFlags.lat, "lat", 40.7128, "latitude the demo data is centred on")
	f.Float64Var(&seedFlags.lng, "lng", -74.0060, "longitude the demo data is centred on")
	f.Int64Var(&seedFlags.seed, "seed", 42, "random seed")
	rootCmd.AddCommand(seedCmd)
}
