package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/store"
)

var (
	exposuresListUser   string
	exposuresImportFile string
)

var exposuresCmd = &cobra.Command{
	Use:   "exposures",
	Short: "Inspect and import tracked exposure records",
}

var exposuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's tracked exposures",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Store.ListExposures(cmd.Context(), exposuresListUser)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var exposuresImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import exposure records from a JSON file",
	Long:  "Bulk-loads exposure records exported from another system. On PostgreSQL the batch goes through COPY into a temp table and a single upsert; other stores fall back to per-record upserts. Either way the natural key applies, so re-importing the same file is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := loadExposureFile(exposuresImportFile)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := importExposures(cmd.Context(), env.Store, records)
		if err != nil {
			return err
		}
		zap.L().Info("exposures imported",
			zap.String("file", exposuresImportFile),
			zap.Int64("records", n))
		return nil
	},
}

// bulkImporter is implemented by stores that can load a whole batch in one
// round trip.
type bulkImporter interface {
	BulkImportExposures(ctx context.Context, records []model.ExposureRecord) (int64, error)
}

// importExposures writes a batch through the fastest path the store offers.
func importExposures(ctx context.Context, st store.Store, records []model.ExposureRecord) (int64, error) {
	if b, ok := st.(bulkImporter); ok {
		return b.BulkImportExposures(ctx, records)
	}
	var n int64
	for _, rec := range records {
		if _, _, err := st.UpsertExposure(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// loadExposureFile reads a JSON array of exposure records, validates the
// natural-key fields, and fills defaults for status and timestamps.
func loadExposureFile(path string) ([]model.ExposureRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read exposures file %s", path)
	}

	var records []model.ExposureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "parse exposures file %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("exposures file %s: no records", path)
	}

	now := time.Now().UTC()
	for i := range records {
		r := &records[i]
		if r.UserID == "" || r.BrokerID == "" || r.DataType == "" || r.DataValue == "" {
			return nil, eris.Errorf("exposures file %s: record %d is missing natural-key fields", path, i)
		}
		if r.Status == "" {
			r.Status = model.ExposureStatusFound
		}
		if r.FirstFoundAt.IsZero() {
			r.FirstFoundAt = now
		}
		if r.LastSeenAt.IsZero() {
			r.LastSeenAt = now
		}
	}
	return records, nil
}

func init() {
	exposuresListCmd.Flags().StringVar(&exposuresListUser, "user", "", "user id to list exposures for")
	_ = exposuresListCmd.MarkFlagRequired("user")

	exposuresImportCmd.Flags().StringVar(&exposuresImportFile, "file", "", "JSON file of exposure records (required)")
	_ = exposuresImportCmd.MarkFlagRequired("file")

	exposuresCmd.AddCommand(exposuresListCmd, exposuresImportCmd)
	rootCmd.AddCommand(exposuresCmd)
}
