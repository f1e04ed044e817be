package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/retrieval"
	"github.com/nomore1007/SnekretAIry/internal/tokens"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble relevant records for a query",
		Long:  "Score goals, tasks, and journal entries against the query, then greedily pack the best into the token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}
	cmd.Flags().Bool("render", false, "Print the prompt text block instead of JSON")
	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	render, _ := cmd.Flags().GetBool("render")
	query := strings.Join(args, " ")

	st, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	builder := retrieval.NewBuilder(st, tokens.NewCounter())
	bundle, err := builder.Build(cmd.Context(), retrieval.BuildParams{
		Query:  query,
		Budget: cfg.ContextBudget,
	})
	if err != nil {
		exitErr("context", err)
	}

	if render {
		fmt.Println(bundle.Render())
		return
	}
	b, _ := json.MarshalIndent(bundle, "", "  ")
	fmt.Println(string(b))
}
