package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewReleaseCmd создаёт группу команд для просмотра releases.
func NewReleaseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Inspect releases",
	}

	cmd.AddCommand(
		newReleaseListCmd(clientFn, outputFn),
		newReleaseShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newReleaseListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipelineID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			releases, err := client.ListReleases(ListReleasesOpts{
				PipelineID: pipelineID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "ARTIFACTS", "CREATED"}
			rows := make([][]string, len(releases))
			for i, rel := range releases {
				rows[i] = []string{
					rel.ID, rel.PipelineID, rel.Version, rel.Status,
					strconv.Itoa(len(rel.Artifacts)), rel.CreatedAt,
				}
			}

			out.Print(headers, rows, releases)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineID, "pipeline-id", "", "Filter by pipeline ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PUBLISHED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newReleaseShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show release details including artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rel, err := client.GetRelease(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "PIPELINE_ID", "RUN_ID", "VERSION", "STATUS", "INDEX_URL", "ERROR"},
				[][]string{{rel.ID, rel.PipelineID, rel.RunID, rel.Version, rel.Status, rel.IndexURL, rel.Error}},
				rel,
			)

			if len(rel.Artifacts) > 0 && !out.jsonMode {
				out.Success("")
				headers := []string{"ARTIFACT", "SIZE", "SHA256"}
				rows := make([][]string, len(rel.Artifacts))
				for i, a := range rel.Artifacts {
					rows[i] = []string{a.Name, strconv.FormatInt(a.SizeBytes, 10), a.SHA256}
				}
				out.Table(headers, rows)
			}
			return nil
		},
	}
}
