package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"aistudio/db"
	"aistudio/model"
	"aistudio/repository"

	"github.com/spf13/cobra"
)

var jobsProjectID int64

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the AI jobs of a project stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jobsProjectID <= 0 {
			return fmt.Errorf("--project is required")
		}
		gdb, err := db.Open(cfg.Database)
		if err != nil {
			return err
		}
		store := repository.NewGormStore(gdb)
		defer store.Close()

		rows, err := projectJobRows(cmd.Context(), store, jobsProjectID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Project %d has no jobs.\n", jobsProjectID)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Kind", "ID", "Status", "Created", "Output", "Error"}, rows, 1))
		return nil
	},
}

func init() {
	jobsCmd.Flags().Int64Var(&jobsProjectID, "project", 0, "project id")
	rootCmd.AddCommand(jobsCmd)
}

type jobRow struct {
	kind   model.JobKind
	id     int64
	state  model.JobState
	output string
}

// projectJobRows collects every job kind of a project, oldest first.
func projectJobRows(ctx context.Context, store repository.JobRepository, projectID int64) ([][]string, error) {
	var all []jobRow

	stems, err := store.GetStemSeparationJobsByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, j := range stems {
		output := ""
		if len(j.OutputPaths) > 0 {
			output = fmt.Sprintf("%d stems", len(j.OutputPaths))
		}
		all = append(all, jobRow{kind: model.JobKindStemSeparation, id: j.ID, state: j.JobState, output: output})
	}

	voices, err := store.GetVoiceCloningJobsByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, j := range voices {
		all = append(all, jobRow{kind: model.JobKindVoiceCloning, id: j.ID, state: j.JobState, output: deref(j.OutputPath)})
	}

	music, err := store.GetMusicGenerationJobsByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, j := range music {
		all = append(all, jobRow{kind: model.JobKindMusicGeneration, id: j.ID, state: j.JobState, output: deref(j.OutputPath)})
	}

	sort.SliceStable(all, func(a, b int) bool {
		return all[a].state.CreatedAt.Before(all[b].state.CreatedAt)
	})

	rows := make([][]string, 0, len(all))
	for _, j := range all {
		rows = append(rows, []string{
			string(j.kind),
			strconv.FormatInt(j.id, 10),
			string(j.state.Status),
			j.state.CreatedAt.Local().Format(time.DateTime),
			j.output,
			deref(j.state.Error),
		})
	}
	return rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
