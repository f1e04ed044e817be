package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/mutation"
	"github.com/nomore1007/SnekretAIry/internal/proposal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Review and apply pending proposals",
		Long: "Read proposals JSON (the output of 'propose') from stdin, ask for\n" +
			"approval on each pending one, and apply the approved set.",
		Run: runApply,
	}
	cmd.Flags().Bool("approve-all", false, "Apply every pending proposal without prompting")
	RootCmd.AddCommand(cmd)
}

func runApply(cmd *cobra.Command, args []string) {
	approveAll, _ := cmd.Flags().GetBool("approve-all")

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var proposals []*proposal.Proposal
	if err := json.Unmarshal(raw, &proposals); err != nil {
		exitErr("apply", fmt.Errorf("stdin is not a proposals JSON array: %v", err))
	}

	st, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	// Prompts go through the terminal so stdin stays free for the piped
	// proposals.
	var tty *bufio.Reader
	if !approveAll {
		f, err := os.Open("/dev/tty")
		if err != nil {
			exitErr("apply", fmt.Errorf("no terminal for approval prompts (use --approve-all): %v", err))
		}
		defer f.Close()
		tty = bufio.NewReader(f)
	}

	var decisions []mutation.Decision
	for _, p := range proposals {
		if p.State != proposal.StatePendingApproval {
			continue
		}
		approved := approveAll
		if !approveAll {
			approved = confirm(tty, p)
		}
		decisions = append(decisions, mutation.Decision{Proposal: p, Approved: approved})
	}

	if len(decisions) == 0 {
		fmt.Println("[]")
		return
	}

	eng := mutation.NewEngine(st)
	results := eng.ApplyAll(cmd.Context(), decisions)

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

func confirm(r *bufio.Reader, p *proposal.Proposal) bool {
	fmt.Fprintf(os.Stderr, "%s (confidence %.2f)\napply? [y/N] ", p.Summary(), p.Confidence)
	line, err := r.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
