package cache

import "time"

const (
	// Dedup of processed gateway events: dedup:{scope}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Per-session processing lock: lock:session:{session_id}
	KeySessionLock = "lock:session:%s"
)

var (
	TTLDedup = 48 * time.Hour
	TTLLock  = 30 * time.Second

	// how long Lock waits for a busy session before giving up
	LockWait     = 10 * time.Second
	lockInterval = 100 * time.Millisecond
)
