package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for an exam's sanitized question paper
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// AttemptStartLockKey returns the lock key serializing attempt creation for a user and exam
func (r *CacheKeyStruct) AttemptStartLockKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:start_lock", userID, examID)
}

// UserSessionKey returns the key marking an issued token as live
func (r *CacheKeyStruct) UserSessionKey(userID, jti string) string {
	return fmt.Sprintf("user:%s:session:%s", userID, jti)
}

// UserSessionPattern matches every session key of a user
func (r *CacheKeyStruct) UserSessionPattern(userID string) string {
	return fmt.Sprintf("user:%s:session:*", userID)
}

var CacheKey = NewCacheKeyStruct()
