package main

import (
	"github.com/spf13/cobra"

	"github.com/unlist-labs/brokerscan/internal/fetch"
	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the supported people-search sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		// No store or network needed to enumerate capabilities.
		reg := source.DefaultRegistry(fetch.NewChain(fetch.Options{}))

		type sourceInfo struct {
			Kind        string             `json:"kind"`
			SearchTypes []model.SearchType `json:"search_types"`
		}
		var out []sourceInfo
		for _, e := range reg.All() {
			out = append(out, sourceInfo{
				Kind:        string(e.Kind()),
				SearchTypes: e.SearchTypes(),
			})
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
