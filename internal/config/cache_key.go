package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptAnswersKey returns the journal hash holding confirmed answers of an attempt
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptDroppedEventsKey returns the journal list of telemetry batches the server never accepted
func (r *CacheKeyStruct) AttemptDroppedEventsKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:dropped_events", attemptID)
}

// ActiveAttemptKey returns the key pointing at the attempt the client last started
func (r *CacheKeyStruct) ActiveAttemptKey() string {
	return "client:active_attempt"
}

var CacheKey = NewCacheKeyStruct()
