package sim

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// sampleRow is one buffered output row in batch mode.
type sampleRow struct {
	instance int
	time     float64
	line     string
}

// Emitter writes simulation state as CSV: a header line
// `instance,time,cell,<species...>` and one data row per
// (instance, sample time, cell). Times are written with full precision.
//
// State is serialised by a mutex, so concurrent instance drivers may
// contribute samples. In streaming mode each sample's rows go straight to
// the writer; in batch mode rows are buffered and Flush sorts them by
// (instance, time) and writes everything at the end.
type Emitter struct {
	w       *bufio.Writer
	species []string

	batch bool
	mu    sync.Mutex
	rows  []sampleRow
}

// NewEmitter creates an emitter for the model's species over w. In batch
// mode the row buffer is pre-reserved for expectedSamples rows.
func NewEmitter(w io.Writer, m *Model, batch bool, expectedSamples int) *Emitter {
	e := &Emitter{
		w:     bufio.NewWriter(w),
		batch: batch,
	}
	for _, s := range m.Species.Items() {
		e.species = append(e.species, s.Name)
	}
	if batch && expectedSamples > 0 {
		e.rows = make([]sampleRow, 0, expectedSamples)
	}
	return e
}

// Header writes the CSV header line.
func (e *Emitter) Header() error {
	e.w.WriteString("instance,time,cell")
	for _, name := range e.species {
		e.w.WriteByte(',')
		e.w.WriteString(name)
	}
	e.w.WriteByte('\n')
	return e.w.Flush()
}

// State emits one sample of an instance: a row per cell with the current
// species counts.
func (e *Emitter) State(instance int, t float64, s *Simulator) error {
	lines := e.formatState(instance, t, s)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batch {
		for _, line := range lines {
			e.rows = append(e.rows, sampleRow{instance: instance, time: t, line: line})
		}
		return nil
	}
	for _, line := range lines {
		if _, err := e.w.WriteString(line); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

func (e *Emitter) formatState(instance int, t float64, s *Simulator) []string {
	ts := strconv.FormatFloat(t, 'g', -1, 64)
	lines := make([]string, 0, s.Model().NCells())
	for c := 0; c < s.Model().NCells(); c++ {
		line := fmt.Sprintf("%d,%s,%d", instance, ts, c)
		for sp := range e.species {
			line += "," + strconv.FormatInt(s.Count(instance, sp, c), 10)
		}
		lines = append(lines, line+"\n")
	}
	return lines
}

// Flush writes buffered batch rows, ordered by (instance, time), and
// flushes the writer.
func (e *Emitter) Flush() error {
	if e.batch {
		e.mu.Lock()
		sort.SliceStable(e.rows, func(i, j int) bool {
			if e.rows[i].instance != e.rows[j].instance {
				return e.rows[i].instance < e.rows[j].instance
			}
			return e.rows[i].time < e.rows[j].time
		})
		for _, row := range e.rows {
			if _, err := e.w.WriteString(row.line); err != nil {
				e.mu.Unlock()
				return err
			}
		}
		e.rows = e.rows[:0]
		e.mu.Unlock()
	}
	return e.w.Flush()
}
