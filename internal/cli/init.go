package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the memory directory",
		Run:   runInit,
	})
}

func runInit(cmd *cobra.Command, args []string) {
	st, _, err := openStore()
	if err != nil {
		exitErr("init", err)
	}
	fmt.Printf("memory directory ready at %s\n", st.Dir())
}
