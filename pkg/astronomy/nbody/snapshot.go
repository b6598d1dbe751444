package nbody

import (
	"bufio"
	"encoding/json"
	"os"
)

// A Snapshot is the sampled state of the particle array at one output time.
// Samples are only taken with positions and velocities synchronized, so a
// snapshot is always physically meaningful on its own.
type Snapshot struct {
	Time      float64
	Particles []Particle
}

// StepDiagnostics carries integrator health data alongside each sample: the
// total energy at sample time and how deep the shell recursion has had to go
// so far. A ShellsUsed that keeps growing flags a system that is spending
// most of its time inside close encounters.
type StepDiagnostics struct {
	Energy     float64
	ShellsUsed int
}

// SnapshotSink consumes sampled states during a run.
type SnapshotSink interface {
	OnStart(totalSteps, snapEvery int) error
	OnSnapshot(snap Snapshot, diag StepDiagnostics) error
	OnEnd(finalTime float64) error
	Close() error
}

// JSONLSnapshotWriter streams one self-contained JSON record per sample to a
// file. Because every line stands alone, a running simulation can be tailed
// and a truncated file still yields all completed samples.
type JSONLSnapshotWriter struct {
	f  *os.File
	bw *bufio.Writer
}

// jsonlBody is the compact per-particle wire form. Massless entries are test
// particles; radius is omitted when the body has no physical extent.
type jsonlBody struct {
	ID     string  `json:"id,omitempty"`
	Mass   float64 `json:"m"`
	Radius float64 `json:"r,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	VZ     float64 `json:"vz"`
}

type jsonlRecord struct {
	Time       float64     `json:"t"`
	Energy     float64     `json:"energy"`
	ShellsUsed int         `json:"shells_used"`
	Bodies     []jsonlBody `json:"bodies"`
}

func NewJSONLSnapshotWriter(path string) (*JSONLSnapshotWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSONLSnapshotWriter{f: f, bw: bufio.NewWriter(f)}, nil
}

func (w *JSONLSnapshotWriter) OnStart(totalSteps, snapEvery int) error { return nil }

func (w *JSONLSnapshotWriter) OnSnapshot(snap Snapshot, diag StepDiagnostics) error {
	rec := jsonlRecord{
		Time:       snap.Time,
		Energy:     diag.Energy,
		ShellsUsed: diag.ShellsUsed,
		Bodies:     make([]jsonlBody, len(snap.Particles)),
	}
	for i, p := range snap.Particles {
		rec.Bodies[i] = jsonlBody{
			ID:     p.ID,
			Mass:   p.Mass,
			Radius: p.Radius,
			X:      p.Position.X,
			Y:      p.Position.Y,
			Z:      p.Position.Z,
			VX:     p.Velocity.X,
			VY:     p.Velocity.Y,
			VZ:     p.Velocity.Z,
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

func (w *JSONLSnapshotWriter) OnEnd(finalTime float64) error { return w.bw.Flush() }

func (w *JSONLSnapshotWriter) Close() error {
	if w.bw != nil {
		_ = w.bw.Flush()
	}
	if w.f != nil {
		return w.f.Close()
	}
	return nil
}
