package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"car-scraper/api"
	"car-scraper/models"
	"car-scraper/storage"
)

var recentLimit int

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", api.DefaultLimit, "Number of listings to show.")
	rootCmd.AddCommand(recentCmd, getCmd, countCmd)
}

var recentCmd = &cobra.Command{
	Use:   "recent [--limit N]",
	Short: "Prints the most recently scraped listings, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		listings, err := store.ScanRecent(recentLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"ID", "Title", "Year", "Price", "Mileage", "Scraped"})
		for _, l := range listings {
			t.AppendRow(table.Row{l.ID, l.Title, yearCell(l), priceCell(l), mileageCell(l),
				humanize.Time(l.ScrapedAt)})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d listings", len(listings))})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Prints one stored listing as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		listing, err := store.Get(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no listing with id %s", args[0])
		}
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(listing, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Prints the number of stored rows.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func yearCell(l *models.Listing) string {
	if l.Year == nil {
		return "-"
	}
	return strconv.Itoa(*l.Year)
}

func priceCell(l *models.Listing) string {
	if l.Price == nil {
		return "-"
	}
	return l.Currency + " " + humanize.CommafWithDigits(*l.Price, 2)
}

func mileageCell(l *models.Listing) string {
	if l.Mileage == nil {
		return "-"
	}
	return humanize.Comma(int64(*l.Mileage))
}
