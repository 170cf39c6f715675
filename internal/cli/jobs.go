package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prasanth-sim/off-highway/internal/catalog"
	"github.com/prasanth-sim/off-highway/internal/choices"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List buildable repositories and saved choices",
	Long: `List every buildable repository with its selection index, defaults, and
whatever branch/variant you picked last time.`,
	Args: cobra.NoArgs,
	RunE: runJobsCmd,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobsCmd(cmd *cobra.Command, args []string) error {
	cat := catalog.Default()
	store := &choices.Store{Path: cfg.ChoicesFile}

	prev, err := store.Load()
	if err != nil {
		return err
	}
	prev.Prune(func(name string) bool {
		_, ok := cat.Find(name)
		return ok
	})

	printCatalog(cat, prev)
	return nil
}

// printCatalog renders the selection table shown before prompting.
func printCatalog(cat *catalog.Catalog, prev choices.Choices) {
	selected := make(map[string]bool, len(prev.Selected))
	for _, name := range prev.Selected {
		selected[name] = true
	}

	fmt.Printf("%-4s %-26s %-24s %-12s %s\n", "IDX", "REPOSITORY", "BRANCH", "VARIANT", "SAVED")
	fmt.Println("--------------------------------------------------------------------------")
	for i, job := range cat.All() {
		branch := job.DefaultBranch
		if b := prev.Branches[job.Name]; b != "" {
			branch = b
		}
		variant := job.DefaultVariant
		if v := prev.Variants[job.Name]; v != "" {
			variant = v
		}
		mark := ""
		if selected[job.Name] {
			mark = "*"
		}
		fmt.Printf("%-4d %-26s %-24s %-12s %s\n", i+1, job.Name, branch, variant, mark)
	}
	fmt.Println()
}
