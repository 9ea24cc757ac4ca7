package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricewatch/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history <product>",
	Short: "Show the recorded price history for a product (by name or hash)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database not found: %s", dbPath)
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		products, err := db.SearchProducts(ctx, args[0])
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Println("No matching products.")
			return nil
		}

		for _, p := range products {
			fmt.Printf("%s  %s  [%s]  ₹%.2f\n", p.Hash, p.Name, p.Category, p.Price)
			observations, err := db.History(ctx, p.Hash, limit)
			if err != nil {
				return err
			}
			for _, o := range observations {
				ts := o.ExtractedAt.Format("2006-01-02 15:04:05")
				fmt.Printf("  %s  ₹%.2f  %s\n", ts, o.Price, o.Location)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("dbpath", "data/prices.db", "Path to SQLite DB file")
	historyCmd.Flags().Int("limit", 20, "Number of observations to show per product")
}
