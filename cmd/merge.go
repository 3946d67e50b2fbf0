package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/unlist-labs/brokerscan/internal/orchestrate"
	"github.com/unlist-labs/brokerscan/internal/source"
)

var mergePairs []string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Scrape detail pages from several sources and merge them into one profile",
	Example: `  brokerscan merge \
    --from truepeoplesearch=https://www.truepeoplesearch.com/find/person/px1 \
    --from radaris=https://radaris.com/p/Jane/Doe/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parseMergePairs(mergePairs)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		merged, err := env.Engine.MergeDetails(cmd.Context(), pairs)
		if err != nil {
			return err
		}
		return printJSON(merged)
	},
}

// parseMergePairs parses repeated source=url flags.
func parseMergePairs(raw []string) ([]orchestrate.SourceURL, error) {
	if len(raw) == 0 {
		return nil, eris.New("at least one --from source=url pair is required")
	}
	pairs := make([]orchestrate.SourceURL, 0, len(raw))
	for _, r := range raw {
		name, url, ok := strings.Cut(r, "=")
		if !ok || url == "" {
			return nil, eris.Errorf("malformed --from value %q, want source=url", r)
		}
		kind, err := source.ParseKind(name)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, orchestrate.SourceURL{Kind: kind, URL: url})
	}
	return pairs, nil
}

func init() {
	mergeCmd.Flags().StringArrayVar(&mergePairs, "from", nil, "source=url pair to include (repeatable)")
	rootCmd.AddCommand(mergeCmd)
}
