package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/index"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Keyword search over records and journal entries",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	st, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	idx, err := index.Open(indexPath(cfg))
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	if err := idx.Rebuild(cmd.Context(), st); err != nil {
		exitErr("rebuild index", err)
	}

	hits, err := idx.Search(cmd.Context(), query, limit)
	if err != nil {
		exitErr("search", err)
	}
	if hits == nil {
		hits = []index.Hit{}
	}

	b, _ := json.MarshalIndent(hits, "", "  ")
	fmt.Println(string(b))
}
