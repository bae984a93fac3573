// Package stats records per-turn usage (provider, model, mode, latency,
// outcome) and persists it to ~/.scholar/stats.json for `scholar stats`.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arin/scholar/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single answered (or failed) conversation turn.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model,omitempty"`
	Mode      string        `json:"mode"`
	Latency   time.Duration `json:"latency_ms"`
	Chars     int           `json:"chars"`
	Citations int           `json:"citations,omitempty"`
	Retry     bool          `json:"retry,omitempty"`
	Success   bool          `json:"success"`
	Source    string        `json:"source,omitempty"` // "cli", "server"
}

// Summary is the aggregated usage dashboard.
type Summary struct {
	TotalTurns        int            `json:"total_turns"`
	SuccessRate       float64        `json:"success_rate"`
	AvgLatencyMs      int64          `json:"avg_latency_ms"`
	ModeBreakdown     map[string]int `json:"mode_breakdown"`
	ProviderBreakdown map[string]int `json:"provider_breakdown"`
	TopModels         []ModelCount   `json:"top_models"`
	Retries           int            `json:"retries"`
	TodayCount        int            `json:"today_count"`
	ThisWeekCount     int            `json:"this_week_count"`
}

// ModelCount pairs a model with its usage count.
type ModelCount struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	// Stored as milliseconds for readability.
	r.Latency = r.Latency / time.Millisecond

	records, _ := loadAll()
	records = append(records, r)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := LoadAll()
	if err != nil {
		return nil, err
	}
	s := &Summary{
		TotalTurns:        len(records),
		ModeBreakdown:     map[string]int{},
		ProviderBreakdown: map[string]int{},
	}
	if len(records) == 0 {
		return s, nil
	}

	var totalLatency int64
	var successCount int
	modelFreq := map[string]int{}
	now := time.Now()
	today := now.Truncate(24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Success {
			successCount++
		}
		if r.Retry {
			s.Retries++
		}
		totalLatency += int64(r.Latency)
		if r.Mode != "" {
			s.ModeBreakdown[r.Mode]++
		}
		if r.Provider != "" {
			s.ProviderBreakdown[r.Provider]++
		}
		if r.Model != "" {
			modelFreq[r.Model]++
		}
		if r.Timestamp.After(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.SuccessRate = float64(successCount) / float64(len(records)) * 100
	s.AvgLatencyMs = totalLatency / int64(len(records))
	s.TopModels = topN(modelFreq, 5)
	return s, nil
}

func topN(freq map[string]int, n int) []ModelCount {
	all := make([]ModelCount, 0, len(freq))
	for model, count := range freq {
		all = append(all, ModelCount{Model: model, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Model < all[j].Model
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
