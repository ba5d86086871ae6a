package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/echoflaresat/sasprobe/surface"
)

type atomRecord struct {
	Index    int     `json:"index"`
	Serial   int     `json:"serial,omitempty"`
	Name     string  `json:"name,omitempty"`
	Residue  string  `json:"residue,omitempty"`
	ResSeq   int     `json:"res_seq,omitempty"`
	Chain    string  `json:"chain,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Radius   float64 `json:"radius"`
	Verdict  string  `json:"verdict"`
	Stage    string  `json:"stage"`
	Faces    int     `json:"faces"`
	Overflow bool    `json:"overflow,omitempty"`
	Layer    *int    `json:"layer,omitempty"`
}

type summary struct {
	Atoms       int            `json:"atoms"`
	Surface     int            `json:"surface"`
	Internal    int            `json:"internal"`
	Overflows   int            `json:"overflows"`
	Engulfed    int            `json:"engulfed"`
	MaxFaces    int            `json:"max_faces"`
	Stages      map[string]int `json:"stages"`
	Layers      []int          `json:"layers,omitempty"`
	DurationSec float64        `json:"duration_seconds"`
}

type validationRecord struct {
	Samples     int     `json:"samples"`
	Checked     int     `json:"checked"`
	Mismatches  []int   `json:"mismatches"`
	Unconfirmed []int   `json:"unconfirmed"`
	Area        float64 `json:"sampled_area"`
}

type jsonReport struct {
	RunID      string            `json:"run_id"`
	Source     string            `json:"source"`
	Backend    string            `json:"backend"`
	StartedAt  time.Time         `json:"started_at"`
	Settings   Settings          `json:"settings"`
	Summary    summary           `json:"summary"`
	Validation *validationRecord `json:"validation,omitempty"`
	Atoms      []atomRecord      `json:"atoms"`
}

func (r *Run) record(i int) atomRecord {
	a, res := r.Atoms[i], r.Results[i]
	rec := atomRecord{
		Index:    i,
		Serial:   a.Serial,
		Name:     a.Name,
		Residue:  a.Residue,
		ResSeq:   a.ResSeq,
		Chain:    a.Chain,
		X:        a.Center.X,
		Y:        a.Center.Y,
		Z:        a.Center.Z,
		Radius:   a.Radius,
		Verdict:  res.Verdict.String(),
		Stage:    res.Stage.String(),
		Faces:    res.Faces,
		Overflow: res.Overflow,
	}
	if l := r.layer(i); l >= 0 {
		rec.Layer = &l
	}
	return rec
}

func (r *Run) summary() summary {
	s := summary{
		Atoms:       len(r.Atoms),
		Surface:     r.Stats.Surface,
		Internal:    r.Stats.Internal,
		Overflows:   r.Stats.Overflows,
		Engulfed:    r.Stats.Engulfed,
		MaxFaces:    r.Stats.MaxFaces,
		Stages:      map[string]int{},
		DurationSec: r.Stats.Duration.Seconds(),
	}
	for stage, n := range r.Stats.Stages {
		if n > 0 {
			s.Stages[surface.Stage(stage).String()] = n
		}
	}
	if r.Layers != nil {
		for _, members := range r.Layers.Members {
			s.Layers = append(s.Layers, len(members))
		}
	}
	return s
}

// WriteJSON writes the run as one indented JSON document.
func WriteJSON(w io.Writer, run *Run) error {
	if err := run.check(); err != nil {
		return err
	}
	doc := jsonReport{
		RunID:     run.ID.String(),
		Source:    run.Source,
		Backend:   run.Backend,
		StartedAt: run.StartedAt,
		Settings:  run.Settings,
		Summary:   run.summary(),
		Atoms:     make([]atomRecord, len(run.Atoms)),
	}
	for i := range run.Atoms {
		doc.Atoms[i] = run.record(i)
	}
	if v := run.Validation; v != nil {
		doc.Validation = &validationRecord{
			Samples:     v.Samples,
			Checked:     len(v.Checked),
			Mismatches:  nonNil(v.Mismatches),
			Unconfirmed: nonNil(v.Unconfirmed),
			Area:        v.Area,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

var csvHeader = []string{
	"index", "serial", "name", "residue", "res_seq", "chain",
	"x", "y", "z", "radius", "verdict", "stage", "faces", "overflow", "layer",
}

// WriteCSV writes a header and one row per atom. The layer column is empty
// when the run has no layers.
func WriteCSV(w io.Writer, run *Run) error {
	if err := run.check(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := make([]string, len(csvHeader))
	for i := range run.Atoms {
		rec := run.record(i)
		row[0] = strconv.Itoa(rec.Index)
		row[1] = strconv.Itoa(rec.Serial)
		row[2] = rec.Name
		row[3] = rec.Residue
		row[4] = strconv.Itoa(rec.ResSeq)
		row[5] = rec.Chain
		row[6] = formatFloat(rec.X)
		row[7] = formatFloat(rec.Y)
		row[8] = formatFloat(rec.Z)
		row[9] = formatFloat(rec.Radius)
		row[10] = rec.Verdict
		row[11] = rec.Stage
		row[12] = strconv.Itoa(rec.Faces)
		row[13] = strconv.FormatBool(rec.Overflow)
		row[14] = ""
		if rec.Layer != nil {
			row[14] = strconv.Itoa(*rec.Layer)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
