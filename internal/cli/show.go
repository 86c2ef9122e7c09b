package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagShowChanged bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the status document, or test for detected changes",
	Long:  "show prints the full status document as JSON. With --changed it prints the\nchanges_detected list and exits 0 when the last gather run detected changes,\n1 otherwise, so CI can decide whether to commit regenerated data.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openStore().Load()
		if err != nil {
			return err
		}

		if flagShowChanged {
			for _, key := range m.Pipeline.Gather.ChangesDetected {
				fmt.Println(key)
			}
			if len(m.Pipeline.Gather.ChangesDetected) == 0 {
				os.Exit(1)
			}
			return nil
		}

		out, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&flagShowChanged, "changed", false, "exit 0 if the last gather detected changes, 1 otherwise")
	rootCmd.AddCommand(showCmd)
}
