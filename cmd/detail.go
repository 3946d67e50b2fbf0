package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/unlist-labs/brokerscan/internal/profile"
	"github.com/unlist-labs/brokerscan/internal/source"
)

var (
	detailSource string
	detailRaw    bool
)

var detailCmd = &cobra.Command{
	Use:   "detail <url>",
	Short: "Scrape one detail page and print the normalized profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		kind, err := source.ParseKind(detailSource)
		if err != nil {
			return err
		}
		ext, err := env.Registry.Get(kind)
		if err != nil {
			return err
		}

		raw, err := ext.ScrapeDetail(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		if detailRaw {
			return printJSON(raw)
		}
		return printJSON(profile.Normalize(raw, time.Now().UTC()))
	},
}

func init() {
	detailCmd.Flags().StringVar(&detailSource, "source", "", "source kind the url belongs to (required)")
	detailCmd.Flags().BoolVar(&detailRaw, "raw", false, "print the raw extracted profile instead of the normalized record")
	_ = detailCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(detailCmd)
}
