package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/index"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Run:   runStats,
	})
}

func runStats(cmd *cobra.Command, args []string) {
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

	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
