// Package journal mirrors session data into Redis so it survives a client
// restart: confirmed answers per attempt, the last started attempt and the
// proctoring batches the server never accepted.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/model"
)

// DefaultTTL bounds how long journal entries outlive their attempt.
const DefaultTTL = 24 * time.Hour

// DroppedBatch is one archived undelivered upload.
type DroppedBatch struct {
	Events    []model.ViolationEvent `json:"events"`
	Cause     string                 `json:"cause"`
	DroppedAt time.Time              `json:"dropped_at"`
}

// Journal writes to any go-redis command set (client, cluster or ring).
type Journal struct {
	rdb redis.Cmdable
	ttl time.Duration
	log zerolog.Logger
	now func() time.Time
}

// New creates a Journal with DefaultTTL.
func New(rdb redis.Cmdable, log zerolog.Logger) *Journal {
	return &Journal{
		rdb: rdb,
		ttl: DefaultTTL,
		log: log.With().Str("component", "journal").Logger(),
		now: time.Now,
	}
}

// SaveAnswer records the confirmed keys of one question.
func (j *Journal) SaveAnswer(ctx context.Context, attemptID, questionID string, keys []string) error {
	payload, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	key := config.CacheKey.AttemptAnswersKey(attemptID)
	if err := j.rdb.HSet(ctx, key, questionID, string(payload)).Err(); err != nil {
		return fmt.Errorf("journal answer: %w", err)
	}
	return j.rdb.Expire(ctx, key, j.ttl).Err()
}

// Answers returns every journaled answer of an attempt.
func (j *Journal) Answers(ctx context.Context, attemptID string) (map[string][]string, error) {
	raw, err := j.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal answers: %w", err)
	}

	out := make(map[string][]string, len(raw))
	for qid, v := range raw {
		var keys []string
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			j.log.Warn().Err(err).Str("question_id", qid).Msg("Skipping corrupt journal entry")
			continue
		}
		out[qid] = keys
	}
	return out, nil
}

// MarkActive remembers attemptID as the attempt in progress.
func (j *Journal) MarkActive(ctx context.Context, attemptID string) error {
	return j.rdb.Set(ctx, config.CacheKey.ActiveAttemptKey(), attemptID, j.ttl).Err()
}

// ActiveAttempt returns the attempt marked active, or "" if none.
func (j *Journal) ActiveAttempt(ctx context.Context) (string, error) {
	id, err := j.rdb.Get(ctx, config.CacheKey.ActiveAttemptKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read active attempt: %w", err)
	}
	return id, nil
}

// Discard removes the answers of an attempt and clears the active marker.
// Archived dropped batches are kept until they expire.
func (j *Journal) Discard(ctx context.Context, attemptID string) error {
	if err := j.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("discard journal answers: %w", err)
	}
	active, err := j.ActiveAttempt(ctx)
	if err != nil {
		return err
	}
	if active == attemptID {
		return j.rdb.Del(ctx, config.CacheKey.ActiveAttemptKey()).Err()
	}
	return nil
}

// ArchiveDroppedBatch appends an undelivered batch to the attempt's archive.
func (j *Journal) ArchiveDroppedBatch(ctx context.Context, attemptID string, events []model.ViolationEvent, cause error) error {
	rec := DroppedBatch{Events: events, DroppedAt: j.now().UTC()}
	if cause != nil {
		rec.Cause = cause.Error()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dropped batch: %w", err)
	}

	key := config.CacheKey.AttemptDroppedEventsKey(attemptID)
	if err := j.rdb.RPush(ctx, key, string(payload)).Err(); err != nil {
		j.log.Error().Err(err).Str("attempt_id", attemptID).Int("count", len(events)).Msg("CRITICAL: Failed to archive dropped batch. Data loss occurred.")
		return fmt.Errorf("archive dropped batch: %w", err)
	}
	return j.rdb.Expire(ctx, key, j.ttl).Err()
}

// DroppedBatches lists the archived batches of an attempt, oldest first.
func (j *Journal) DroppedBatches(ctx context.Context, attemptID string) ([]DroppedBatch, error) {
	raw, err := j.rdb.LRange(ctx, config.CacheKey.AttemptDroppedEventsKey(attemptID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dropped batches: %w", err)
	}
	out := make([]DroppedBatch, 0, len(raw))
	for _, v := range raw {
		var rec DroppedBatch
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
