package main

import (
	"github.com/spf13/cobra"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/store"
)

var (
	scanUserID string
	scanFirst  string
	scanLast   string
	scanCity   string
	scanState  string
	scanZip    string
	scanPhone  string

	scanListStatus string
	scanListUser   string
	scanListLimit  int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run and manage data-broker scans",
}

var scanStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a scan: search the configured sources for a person",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Machine.Start(cmd.Context(), scanUserID, model.SearchInput{
			FirstName: scanFirst,
			LastName:  scanLast,
			City:      scanCity,
			State:     scanState,
			Zip:       scanZip,
			Phone:     scanPhone,
		})
		if err != nil {
			return err
		}
		return printJSON(sc)
	},
}

var scanGetCmd = &cobra.Command{
	Use:   "get <scan-id>",
	Short: "Show a scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Store.GetScan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sc)
	},
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		scans, err := env.Store.ListScans(cmd.Context(), store.ScanFilter{
			Status: model.ScanStatus(scanListStatus),
			UserID: scanListUser,
			Limit:  scanListLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(scans)
	},
}

var scanSelectCmd = &cobra.Command{
	Use:   "select <scan-id> <match-id>",
	Short: "Confirm a candidate match and scrape its detail page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Machine.Select(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(sc)
	},
}

var scanRejectCmd = &cobra.Command{
	Use:   "reject <scan-id>",
	Short: "Reject the presented candidates and search the remaining sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := env.Machine.Reject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sc)
	},
}

func init() {
	scanStartCmd.Flags().StringVar(&scanUserID, "user", "", "user id the scan belongs to")
	scanStartCmd.Flags().StringVar(&scanFirst, "first", "", "first name")
	scanStartCmd.Flags().StringVar(&scanLast, "last", "", "last name")
	scanStartCmd.Flags().StringVar(&scanCity, "city", "", "city")
	scanStartCmd.Flags().StringVar(&scanState, "state", "", "state abbreviation")
	scanStartCmd.Flags().StringVar(&scanZip, "zip", "", "zip code")
	scanStartCmd.Flags().StringVar(&scanPhone, "phone", "", "phone number (phone-capable sources only)")

	scanListCmd.Flags().StringVar(&scanListStatus, "status", "", "filter by status")
	scanListCmd.Flags().StringVar(&scanListUser, "user", "", "filter by user id")
	scanListCmd.Flags().IntVar(&scanListLimit, "limit", 50, "maximum scans to return")

	scanCmd.AddCommand(scanStartCmd, scanGetCmd, scanListCmd, scanSelectCmd, scanRejectCmd)
	rootCmd.AddCommand(scanCmd)
}
