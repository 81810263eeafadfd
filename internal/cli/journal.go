package cli

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/database"
	"github.com/stemsi/exstem-client/internal/journal"
	"github.com/stemsi/exstem-client/internal/logger"
)

var journalCmd = &cobra.Command{
	Use:   "journal [attempt-id]",
	Short: "Print the journaled answers and dropped telemetry of an attempt",
	Long: `journal reads the local Redis journal (REDIS_URL). Without an attempt ID
it shows the last attempt that was started and not cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

type journalReport struct {
	AttemptID      string                 `json:"attempt_id"`
	Answers        map[string][]string    `json:"answers"`
	DroppedBatches []journal.DroppedBatch `json:"dropped_batches"`
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if !cfg.JournalEnabled() {
		return errors.New("REDIS_URL is not set; the journal is disabled")
	}
	log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	j := journal.New(rdb, log)

	attemptID := ""
	if len(args) == 1 {
		attemptID = args[0]
	} else if attemptID, err = j.ActiveAttempt(ctx); err != nil {
		return err
	}
	if attemptID == "" {
		return errors.New("no active attempt in the journal; pass an attempt ID")
	}

	answers, err := j.Answers(ctx, attemptID)
	if err != nil {
		return err
	}
	dropped, err := j.DroppedBatches(ctx, attemptID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(journalReport{
		AttemptID:      attemptID,
		Answers:        answers,
		DroppedBatches: dropped,
	})
}
