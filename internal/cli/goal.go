package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/store"
)

func init() {
	goalCmd := &cobra.Command{
		Use:   "goal",
		Short: "Goal management",
	}
	goalCmd.AddCommand(
		newAddCmd(model.KindGoal),
		newListCmd(model.KindGoal),
		newStatusCmd(model.KindGoal),
	)
	RootCmd.AddCommand(goalCmd)

	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Task management",
	}
	taskCmd.AddCommand(
		newAddCmd(model.KindTask),
		newListCmd(model.KindTask),
		newStatusCmd(model.KindTask),
	)
	RootCmd.AddCommand(taskCmd)
}

func newAddCmd(kind string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a new " + kind,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			parent, _ := cmd.Flags().GetString("parent")

			st, _, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}

			rec, err := st.AppendGoalTask(cmd.Context(), model.GoalTask{
				ID:       st.NewID(),
				Kind:     kind,
				Text:     strings.Join(args, " "),
				Status:   model.StatusOpen,
				ParentID: parent,
			})
			if err != nil {
				exitErr("add "+kind, err)
			}

			b, _ := json.Marshal(rec)
			fmt.Println(string(b))
		},
	}
	cmd.Flags().StringP("parent", "p", "", "Parent goal/task ID")
	return cmd
}

func newListCmd(kind string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + kind + "s with their current status",
		Run: func(cmd *cobra.Command, args []string) {
			status, _ := cmd.Flags().GetString("status")
			parent, _ := cmd.Flags().GetString("parent")

			st, _, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}

			entries, faults, err := st.ScanTelos(cmd.Context())
			if err != nil {
				exitErr("scan", err)
			}
			reportFaults(faults)

			var out []model.GoalTask
			for _, rec := range store.FoldOrdered(entries) {
				if rec.Kind != kind {
					continue
				}
				if status != "" && rec.Status != status {
					continue
				}
				if parent != "" && rec.ParentID != parent {
					continue
				}
				out = append(out, rec)
			}

			b, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(b))
		},
	}
	cmd.Flags().StringP("status", "s", "", "Filter by status: open, in_progress, done")
	cmd.Flags().StringP("parent", "p", "", "Filter by parent ID")
	return cmd
}

func newStatusCmd(kind string) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id] [open|in_progress|done]",
		Short: "Record a status change for a " + kind,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			st, _, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}

			rec, err := st.AppendStatusUpdate(cmd.Context(), args[0], args[1])
			if err != nil {
				exitErr("update status", err)
			}

			b, _ := json.Marshal(rec)
			fmt.Println(string(b))
		},
	}
}
