package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizQuestionsKey returns the cache key for a quiz's question set
func (r *CacheKeyStruct) QuizQuestionsKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:questions", quizID)
}

// AttemptResponsesKey returns the cache key holding an enqueued attempt's
// responses until the worker has graded it
func (r *CacheKeyStruct) AttemptResponsesKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:responses", attemptID)
}

var CacheKey = NewCacheKeyStruct()
