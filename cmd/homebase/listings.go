package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"homebase/internal/domain"
	"homebase/internal/store"

	"github.com/spf13/cobra"
)

func listingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Query the local listing base",
	}

	cmd.AddCommand(listingsSearchCmd())
	cmd.AddCommand(listingsStatsCmd())
	cmd.AddCommand(listingsPhoneCmd())
	cmd.AddCommand(listingsSoldCmd())
	cmd.AddCommand(listingsFavoriteCmd())

	return cmd
}

// withStore opens the configured listings database around fn.
func withStore(fn func(ctx context.Context, db *store.SQLiteStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}

func listingsSearchCmd() *cobra.Command {
	var f domain.Filter

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List per-phone summaries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				rows, err := db.PhonesSummary(ctx, f)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PHONE\tDATE\tTYPE\tOPERATION\tMETRO\tROOMS\tPRICE\tADS\tADDRESS")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.0f %s\t%d\t%s\n",
						r.Phone, r.DateRead, r.PropType, r.Operation, r.Metro,
						r.Rooms, r.Price, r.Currency, r.AdCount, r.Address)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Printf("%d contacts\n", len(rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&f.Keyword, "keyword", "k", "", "match phone, metro or address")
	cmd.Flags().StringVar(&f.DateFrom, "from", "", "read date lower bound, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.DateTo, "to", "", "read date upper bound, YYYY-MM-DD")
	cmd.Flags().BoolVar(&f.ExcludeSold, "exclude-sold", false, "hide contacts marked sold")
	cmd.Flags().BoolVar(&f.OnlySold, "only-sold", false, "show only contacts marked sold")
	cmd.Flags().BoolVar(&f.OnlyFavorites, "only-favorites", false, "show only favorite contacts")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows (default 500)")
	cmd.MarkFlagsMutuallyExclusive("exclude-sold", "only-sold")

	return cmd
}

func listingsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show base-wide statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				st, err := db.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("listings:   %d\n", st.Total)
				fmt.Printf("sales:      %d\n", st.Sales)
				fmt.Printf("rent:       %d\n", st.Rent)
				fmt.Printf("duplicates: %d\n", st.Duplicates)
				if len(st.TopTypes) > 0 {
					fmt.Println("top types:")
					for _, tc := range st.TopTypes {
						fmt.Printf("  %-20s %d\n", tc.PropType, tc.Count)
					}
				}
				return nil
			})
		},
	}
}

func listingsPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phone [number]",
		Short: "Show one contact's ad history and price trend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				stats, err := db.PhoneStats(ctx, args[0])
				if err != nil {
					return err
				}
				history, err := db.ListingsByPhone(ctx, args[0])
				if err != nil {
					return err
				}
				if stats.Count == 0 {
					fmt.Println("no listings for this number")
					return nil
				}

				fmt.Printf("ads: %d  first: %s  last: %s\n", stats.Count, stats.FirstDate, stats.LastDate)
				fmt.Printf("price: avg %.0f  min %.0f  max %.0f", stats.AvgPrice, stats.MinPrice, stats.MaxPrice)
				if stats.TrendPct != nil {
					fmt.Printf("  trend %+.1f%%", *stats.TrendPct)
				}
				fmt.Println()

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DATE\tTYPE\tOPERATION\tROOMS\tPRICE\tADDRESS")
				for _, l := range history {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f %s\t%s\n",
						l.DateRead, l.PropType, l.Operation, l.Rooms, l.Price, l.Currency, l.Address)
				}
				return w.Flush()
			})
		},
	}
}

func listingsSoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sold",
		Short: "Mark and unmark contacts as sold",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [number]",
		Short: "Mark a contact sold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				return db.AddSold(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [number]",
		Short: "Unmark a sold contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				return db.RemoveSold(ctx, args[0])
			})
		},
	})

	return cmd
}

func listingsFavoriteCmd() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "favorite [number]",
		Short: "Mark a contact as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.SQLiteStore) error {
				return db.SetFavorite(ctx, args[0], color)
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "highlight color, e.g. #e8f2ff")

	return cmd
}
