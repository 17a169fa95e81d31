package metrics

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JournalEntry is one append-only line per finished job. Written on every
// terminal transition, read back only for diagnostics aggregation.
type JournalEntry struct {
	RequestID      string  `json:"request_id"`
	SessionID      string  `json:"session_id"`
	TaskType       string  `json:"task_type"`
	ProcessingTime float64 `json:"processing_time"`
	Timestamp      string  `json:"timestamp"`
	Success        bool    `json:"success"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// TaskStats summarizes journal entries for one task type.
type TaskStats struct {
	Count       int     `json:"count"`
	SuccessRate float64 `json:"success_rate"`
	AvgTime     float64 `json:"avg_time"`
	MinTime     float64 `json:"min_time"`
	MaxTime     float64 `json:"max_time"`
}

// Journal is the file-backed metrics side-channel. A write failure is logged
// and swallowed: diagnostics must never impact the job flow.
type Journal struct {
	mu   sync.Mutex
	path string
	log  *zerolog.Logger
}

func NewJournal(dir string, logger *zerolog.Logger) *Journal {
	jl := logger.With().Str("component", "Journal").Logger()
	return &Journal{path: filepath.Join(dir, "processing_metrics.jsonl"), log: &jl}
}

func (j *Journal) Record(e JournalEntry) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format(time.RFC3339)
	}
	b, err := json.Marshal(e)
	if err != nil {
		j.log.Error().Err(err).Msg("journal marshal failed")
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		j.log.Error().Err(err).Msg("journal mkdir failed")
		return
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		j.log.Error().Err(err).Msg("journal open failed")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		j.log.Error().Err(err).Msg("journal append failed")
	}
}

// Summary aggregates the most recent entries per task type. sessionID == ""
// means all sessions; limit <= 0 means all records.
func (j *Journal) Summary(sessionID string, limit int) (map[string]TaskStats, []JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]TaskStats{}, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()

	var entries []JournalEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue // tolerate torn lines
		}
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].Timestamp > entries[b].Timestamp })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	type acc struct {
		count, ok          int
		total, minT, maxT  float64
	}
	byType := map[string]*acc{}
	for _, e := range entries {
		a := byType[e.TaskType]
		if a == nil {
			a = &acc{minT: math.Inf(1)}
			byType[e.TaskType] = a
		}
		a.count++
		if e.Success {
			a.ok++
		}
		a.total += e.ProcessingTime
		a.minT = math.Min(a.minT, e.ProcessingTime)
		a.maxT = math.Max(a.maxT, e.ProcessingTime)
	}

	out := make(map[string]TaskStats, len(byType))
	for tt, a := range byType {
		st := TaskStats{
			Count:       a.count,
			SuccessRate: round1(float64(a.ok) / float64(a.count) * 100),
			AvgTime:     round2(a.total / float64(a.count)),
			MinTime:     round2(a.minT),
			MaxTime:     round2(a.maxT),
		}
		out[tt] = st
	}
	return out, entries, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
