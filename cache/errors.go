package cache

import "errors"

var (
	// ErrRedisNotAvailable is returned when a Redis-backed feature is used without a client
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired is returned when a distributed lock could not be taken
	ErrLockNotAcquired = errors.New("could not acquire distributed lock")

	// ErrKeyNotFound is returned by Get on a miss or an expired entry
	ErrKeyNotFound = errors.New("key not found")
)
