package gateway

import (
	"sync"
	"time"

	"github.com/yichenlu/sensereader/internal/metrics"
	"github.com/yichenlu/sensereader/pkg/errs"
)

// QuotaManager tracks per-subject daily counters by route class. Counters
// reset at UTC midnight and live in memory only.
type QuotaManager struct {
	limits map[string]int

	mu     sync.Mutex
	day    string
	counts map[string]int // subject + "/" + class
	now    func() time.Time
}

// NewQuotaManager creates a quota manager. A class missing from limits is
// unmetered.
func NewQuotaManager(limits map[string]int) *QuotaManager {
	return &QuotaManager{
		limits: limits,
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Consume spends one unit of the subject's quota for the class. It returns
// quota_exceeded once the daily limit is reached.
func (q *QuotaManager) Consume(subject, class string) error {
	limit, metered := q.limits[class]
	if !metered {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		q.day = today
		q.counts = make(map[string]int)
	}

	key := subject + "/" + class
	if q.counts[key] >= limit {
		metrics.QuotaRejections.WithLabelValues(class).Inc()
		return errs.Newf(errs.QuotaExceeded, "daily %s quota exhausted", class).
			WithHint("quota resets at UTC midnight")
	}
	q.counts[key]++
	return nil
}

// Remaining reports how much of the class quota the subject has left today
func (q *QuotaManager) Remaining(subject, class string) (int, bool) {
	limit, metered := q.limits[class]
	if !metered {
		return 0, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		return limit, true
	}
	left := limit - q.counts[subject+"/"+class]
	if left < 0 {
		left = 0
	}
	return left, true
}
