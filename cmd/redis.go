package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"aistudio/cache"
	"aistudio/core/jobs"
	"aistudio/db"
	"aistudio/model"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Inspect job events mirrored to redis",
}

var redisWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print job events as they are published until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		events := cache.NewJobEvents(client, cfg.Redis.Channel, cfg.StatusTTL())
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s on %s\n", cfg.Redis.Channel, cfg.RedisAddr())
		return events.Subscribe(ctx, func(e jobs.Event) {
			line := fmt.Sprintf("%s %s #%d project=%d %s",
				e.Time.Local().Format("15:04:05"), e.Kind, e.JobID, e.ProjectID, e.Status)
			if e.Error != "" {
				line += " error=" + strconv.Quote(e.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		})
	},
}

var redisStatusCmd = &cobra.Command{
	Use:   "status <kind> <id>",
	Short: "Print the last event recorded for a job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseJobKind(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q", args[1])
		}

		client, err := db.ConnectRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		event, err := cache.NewJobEvents(client, cfg.Redis.Channel, cfg.StatusTTL()).LastStatus(cmd.Context(), kind, id)
		if err != nil {
			return err
		}
		if event == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No status recorded for %s job %d.\n", kind, id)
			return nil
		}
		data, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	redisCmd.AddCommand(redisWatchCmd, redisStatusCmd)
	rootCmd.AddCommand(redisCmd)
}

func parseJobKind(raw string) (model.JobKind, error) {
	switch kind := model.JobKind(strings.ToLower(raw)); kind {
	case model.JobKindStemSeparation, model.JobKindVoiceCloning, model.JobKindMusicGeneration:
		return kind, nil
	}
	return "", fmt.Errorf("unknown job kind %q (want %s, %s or %s)", raw,
		model.JobKindStemSeparation, model.JobKindVoiceCloning, model.JobKindMusicGeneration)
}
