package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/model"
)

func init() {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal reflections",
	}

	addCmd := &cobra.Command{
		Use:   "add [body]",
		Short: "Append a journal entry",
		Long:  "Append a journal entry. Body can be a positional arg or piped via stdin.",
		Run:   runJournalAdd,
	}
	addCmd.Flags().String("mood", "", "Mood metadata")
	addCmd.Flags().StringSliceP("meta", "m", nil, "Extra metadata as key=value pairs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries (newest first)",
		Run:   runJournalList,
	}
	listCmd.Flags().IntP("limit", "l", 10, "Max entries")

	journalCmd.AddCommand(addCmd, listCmd)
	RootCmd.AddCommand(journalCmd)
}

func runJournalAdd(cmd *cobra.Command, args []string) {
	mood, _ := cmd.Flags().GetString("mood")
	metaPairs, _ := cmd.Flags().GetStringSlice("meta")

	var body string
	if len(args) > 0 {
		body = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			body = string(b)
		}
	}
	if strings.TrimSpace(body) == "" {
		exitErr("journal add", fmt.Errorf("body is required (positional arg or stdin)"))
	}

	meta := map[string]string{}
	if mood != "" {
		meta["mood"] = mood
	}
	for _, pair := range metaPairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			exitErr("journal add", fmt.Errorf("invalid --meta %q (use key=value)", pair))
		}
		meta[k] = v
	}
	if len(meta) == 0 {
		meta = nil
	}

	st, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	ts, err := st.AppendJournal(cmd.Context(), model.JournalEntry{
		Body:     strings.TrimSpace(body),
		Metadata: meta,
	})
	if err != nil {
		exitErr("journal add", err)
	}

	fmt.Println(ts.Format(time.RFC3339Nano))
}

func runJournalList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	st, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	entries, faults, err := st.ScanJournal(cmd.Context())
	if err != nil {
		exitErr("journal list", err)
	}
	reportFaults(faults)

	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
