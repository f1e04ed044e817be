package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/proposal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "propose [query]",
		Short: "Parse a model reply into typed proposals",
		Long: "Read a model reply from stdin and parse it into proposal outcomes.\n" +
			"Nothing is written; pipe the pending proposals into 'apply' to act on them.",
		Args: cobra.MinimumNArgs(1),
		Run:  runPropose,
	}
	RootCmd.AddCommand(cmd)
}

func runPropose(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	st, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	eng := proposal.NewEngine(st)
	proposals, err := eng.Parse(cmd.Context(), string(raw), query)
	if err != nil {
		exitErr("propose", err)
	}
	if proposals == nil {
		proposals = []*proposal.Proposal{}
	}

	b, _ := json.MarshalIndent(proposals, "", "  ")
	fmt.Println(string(b))
}
