package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or reset saved choices",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved choices file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(cfg.ChoicesFile)
		if os.IsNotExist(err) {
			fmt.Printf("No choices saved yet (%s)\n", cfg.ChoicesFile)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", cfg.ChoicesFile, data)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved choices file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := os.Remove(cfg.ChoicesFile)
		if os.IsNotExist(err) {
			fmt.Println("Nothing to reset.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println("Saved choices deleted.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
