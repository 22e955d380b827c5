package cmd

import (
	"fmt"

	"github.com/samzong/gca/internal/workflow"
	"github.com/spf13/cobra"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Print a generated commit message without committing",
	Long: `Collect the staged, unstaged and untracked changes, ask the model for a ` +
		`one-line commit message and print it. Nothing is staged or committed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return handleErrors(runMessage(cmd))
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Print the changes the model would see",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(diffCmd)
}

func runMessage(cmd *cobra.Command) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.requireAPIKey(); err != nil {
		return err
	}

	flow := workflow.NewMessageFlow(rt.git, rt.llm, workflow.MessageOptions{
		OutWriter: outWriter(),
		ErrWriter: errWriter(),
	})
	_, err = flow.Run(cmd.Context())
	return err
}

func runDiff(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := rt.git.CheckGitRepository(ctx); err != nil {
		return err
	}
	diff, err := rt.git.CollectChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect changes: %w", err)
	}
	fmt.Fprint(outWriter(), diff)
	if len(diff) > 0 && diff[len(diff)-1] != '\n' {
		fmt.Fprintln(outWriter())
	}
	return nil
}
