package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rdsim/rdsim/sim/internal/util"
)

// Metrics aggregates per-run statistics for final reporting.
type Metrics struct {
	RunID     string  `json:"run_id"`
	Model     string  `json:"model"`
	Seed      int64   `json:"seed"`
	Instances int     `json:"instances"`
	Processes int     `json:"processes"`

	EventsFired []int64   `json:"events_fired"` // per instance
	FinalTime   []float64 `json:"final_time"`   // per instance

	TotalEvents     int64   `json:"total_events"`
	WallSeconds     float64 `json:"wall_seconds"`
	EventsPerSecond float64 `json:"events_per_second"`
}

// NewMetrics creates metrics for a run over the given simulator.
func NewMetrics(s *Simulator, seed int64) *Metrics {
	return &Metrics{
		RunID:     uuid.NewString(),
		Model:     s.Model().Name,
		Seed:      seed,
		Instances: s.Instances(),
		Processes: s.NumProcesses(),
	}
}

// Capture records final per-instance state from the simulator.
func (m *Metrics) Capture(s *Simulator, startTime time.Time) {
	m.EventsFired = m.EventsFired[:0]
	m.FinalTime = m.FinalTime[:0]
	for j := 0; j < s.Instances(); j++ {
		m.EventsFired = append(m.EventsFired, s.EventCount(j))
		m.FinalTime = append(m.FinalTime, s.Time(j))
	}
	m.TotalEvents = util.Sum64(m.EventsFired)
	m.WallSeconds = time.Since(startTime).Seconds()
	if m.WallSeconds > 0 {
		m.EventsPerSecond = float64(m.TotalEvents) / m.WallSeconds
	}
}

// SaveResults writes the run summary as JSON to outputFilePath when set.
func (m *Metrics) SaveResults(outputFilePath string) error {
	if outputFilePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}
	if err := os.WriteFile(outputFilePath, data, 0644); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
