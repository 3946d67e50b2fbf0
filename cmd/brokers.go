package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
)

var (
	brokersSeedFile string

	brokerScanUser  string
	brokerScanFirst string
	brokerScanLast  string
	brokerScanCity  string
	brokerScanState string
)

var brokersCmd = &cobra.Command{
	Use:   "brokers",
	Short: "Manage the broker catalog and run unattended broker sweeps",
}

var brokersSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the broker catalog from a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file := brokersSeedFile
		if file == "" {
			file = cfg.Brokers.SeedFile
		}
		brokers, err := loadBrokerSeed(file)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, b := range brokers {
			if err := env.Store.UpsertBroker(cmd.Context(), b); err != nil {
				return err
			}
		}
		zap.L().Info("broker catalog seeded",
			zap.String("file", file),
			zap.Int("brokers", len(brokers)))
		return nil
	},
}

var brokersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the broker catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		brokers, err := env.Store.ListBrokers(cmd.Context(), false)
		if err != nil {
			return err
		}
		return printJSON(brokers)
	},
}

var brokersScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep every enabled broker for a person and record exposures",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Sweeper.Run(cmd.Context(), brokerScanUser, model.SearchInput{
			FirstName: brokerScanFirst,
			LastName:  brokerScanLast,
			City:      brokerScanCity,
			State:     brokerScanState,
		})
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

// loadBrokerSeed reads and validates a YAML broker catalog.
func loadBrokerSeed(path string) ([]model.Broker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read seed file %s", path)
	}

	var seed struct {
		Brokers []model.Broker `yaml:"brokers"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrapf(err, "parse seed file %s", path)
	}

	for _, b := range seed.Brokers {
		if b.ID == "" {
			return nil, eris.Errorf("seed file %s: broker with empty id", path)
		}
		if _, err := source.ParseKind(b.SourceKind); err != nil {
			return nil, eris.Wrapf(err, "seed file %s: broker %s", path, b.ID)
		}
	}
	return seed.Brokers, nil
}

func init() {
	brokersSeedCmd.Flags().StringVar(&brokersSeedFile, "file", "", "seed file path (default from config)")

	brokersScanCmd.Flags().StringVar(&brokerScanUser, "user", "", "user id to record exposures under")
	brokersScanCmd.Flags().StringVar(&brokerScanFirst, "first", "", "first name")
	brokersScanCmd.Flags().StringVar(&brokerScanLast, "last", "", "last name")
	brokersScanCmd.Flags().StringVar(&brokerScanCity, "city", "", "city")
	brokersScanCmd.Flags().StringVar(&brokerScanState, "state", "", "state abbreviation")

	brokersCmd.AddCommand(brokersSeedCmd, brokersListCmd, brokersScanCmd)
	rootCmd.AddCommand(brokersCmd)
}
