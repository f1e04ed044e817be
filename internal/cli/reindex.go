package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/index"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the memory files",
		Long: "Rebuild the derived SQLite index from a full scan of the append-only\n" +
			"files. Safe to run anytime; the files are the source of truth.",
		Run: runReindex,
	})
}

func runReindex(cmd *cobra.Command, args []string) {
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
		exitErr("reindex", err)
	}

	fmt.Printf("index rebuilt at %s\n", indexPath(cfg))
}
