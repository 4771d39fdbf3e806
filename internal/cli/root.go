package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the uploaderd command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "uploaderd",
		Short:         "Background batch file uploader",
		Long:          "uploaderd uploads queued files in the background, retries unfinished work across runs and survives interruption through a durable queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newEnqueueCmd(),
		newListCmd(),
		newRemoveCmd(),
	)

	return root
}
