package monitoring

import (
	"sync"
	"time"
)

// SlowQueryThreshold 默认慢查询阈值
const SlowQueryThreshold = 100 * time.Millisecond

// SlowQuery 慢查询记录
type SlowQuery struct {
	Timestamp time.Time     `json:"timestamp"`
	Operation string        `json:"operation"`
	Backend   string        `json:"backend"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
}

// SlowQueryLogger keeps the most recent preference store calls that took at
// least threshold. Oldest entries are dropped once maxSize is reached.
type SlowQueryLogger struct {
	mu        sync.RWMutex
	threshold time.Duration
	queries   []SlowQuery
	maxSize   int
}

// NewSlowQueryLogger 创建慢查询日志记录器
func NewSlowQueryLogger(threshold time.Duration, maxSize int) *SlowQueryLogger {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &SlowQueryLogger{
		threshold: threshold,
		queries:   make([]SlowQuery, 0, maxSize),
		maxSize:   maxSize,
	}
}

// SetThreshold 设置慢查询阈值
func (l *SlowQueryLogger) SetThreshold(threshold time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = threshold
}

// Observe records q when its duration reaches the threshold and reports
// whether it was kept.
func (l *SlowQueryLogger) Observe(q SlowQuery) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q.Duration < l.threshold {
		return false
	}
	// 超过最大大小时移除最旧的记录
	if len(l.queries) >= l.maxSize {
		l.queries = l.queries[1:]
	}
	l.queries = append(l.queries, q)
	return true
}

// Recent returns up to n of the newest records, oldest first. n <= 0 means all.
func (l *SlowQueryLogger) Recent(n int) []SlowQuery {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.queries) {
		n = len(l.queries)
	}
	out := make([]SlowQuery, n)
	copy(out, l.queries[len(l.queries)-n:])
	return out
}

// Clear 清空慢查询记录
func (l *SlowQueryLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = make([]SlowQuery, 0, l.maxSize)
}

var globalSlowQueryLogger = NewSlowQueryLogger(SlowQueryThreshold, 200)

// SlowQueries returns the process-wide slow preference lookup log.
func SlowQueries() *SlowQueryLogger {
	return globalSlowQueryLogger
}
