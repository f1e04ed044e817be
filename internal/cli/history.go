package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change log (newest first)",
		Run:   runHistory,
	}
	cmd.Flags().IntP("limit", "l", 20, "Max entries")
	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	st, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	changes, faults, err := st.ScanChanges(cmd.Context())
	if err != nil {
		exitErr("history", err)
	}
	reportFaults(faults)

	// Newest first.
	for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
		changes[i], changes[j] = changes[j], changes[i]
	}
	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
	}

	b, _ := json.MarshalIndent(changes, "", "  ")
	fmt.Println(string(b))
}
