package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для отправки событий исходного кода.
// Используется для ручной проверки триггеров без настройки webhook.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Send source events",
	}

	cmd.AddCommand(newEventSendCmd(clientFn, outputFn))

	return cmd
}

func newEventSendCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var repo string
	var branch string
	var tag string
	var commit string
	var sender string

	cmd := &cobra.Command{
		Use:   "send TYPE",
		Short: "Send a synthetic event (push, tag, pull_request)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.SendEvent(EventRequest{
				Type:   args[0],
				Repo:   repo,
				Branch: branch,
				Tag:    tag,
				Commit: commit,
				Sender: sender,
			})
			if err != nil {
				return err
			}

			for _, rej := range resp.Rejected {
				out.Error(fmt.Sprintf("rejected by %s: %s", rej.PipelineName, rej.Reason))
			}

			out.Success(fmt.Sprintf("Event accepted: %d run(s) created", len(resp.Runs)))

			headers := []string{"RUN_ID", "PIPELINE_ID", "VERSION", "STATUS"}
			rows := make([][]string, len(resp.Runs))
			for i, r := range resp.Runs {
				rows[i] = []string{r.ID, r.PipelineID, fmt.Sprintf("%d", r.Version), r.Status}
			}

			out.Print(headers, rows, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repository name (required)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (push events)")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag name (tag events)")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit SHA (required)")
	cmd.Flags().StringVar(&sender, "sender", "", "Event sender")
	cmd.MarkFlagRequired("repo")
	cmd.MarkFlagRequired("commit")

	return cmd
}
