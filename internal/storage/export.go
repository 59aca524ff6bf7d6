package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/powerchain/internal/sim"
)

// Series is a run's RPM history in column form.
type Series struct {
	Parts []string
	Times []float64
	RPM   [][]float64 // RPM[i][j] is part j at Times[i]
}

// Column returns one part's history, or nil.
func (s *Series) Column(part string) []float64 {
	for j, p := range s.Parts {
		if p != part {
			continue
		}
		out := make([]float64, len(s.RPM))
		for i, row := range s.RPM {
			if j < len(row) {
				out[i] = row[j]
			}
		}
		return out
	}
	return nil
}

// WriteCSV writes a time column followed by one RPM column per part.
func WriteCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, result.Parts...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, s := range result.Samples {
		row := make([]string, 0, len(s.RPM)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, v := range s.RPM {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced. Unparseable rows are skipped.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty series")
	}

	series := &Series{
		Parts: append([]string(nil), records[0][1:]...),
		Times: make([]float64, 0, len(records)-1),
		RPM:   make([][]float64, 0, len(records)-1),
	}

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				v = 0
			}
			row = append(row, v)
		}
		series.Times = append(series.Times, t)
		series.RPM = append(series.RPM, row)
	}

	return series, nil
}

type ExportData struct {
	Network    string             `json:"network"`
	Controller string             `json:"controller"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Parts      []string           `json:"parts"`
	Times      []float64          `json:"times"`
	RPM        [][]float64        `json:"rpm"`
	Angle      [][]float64        `json:"angle"`
	Disabled   []string           `json:"disabled"`
	Metrics    map[string]float64 `json:"metrics"`
}

func newExportData(network, controller string, cfg sim.Config, result *sim.Result) ExportData {
	data := ExportData{
		Network:    network,
		Controller: controller,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Steps:      result.StepsTaken,
		Parts:      result.Parts,
		Times:      result.Times,
		RPM:        make([][]float64, len(result.Samples)),
		Angle:      make([][]float64, len(result.Samples)),
		Disabled:   result.Disabled,
		Metrics:    result.Metrics,
	}
	if data.Disabled == nil {
		data.Disabled = []string{}
	}
	for i, s := range result.Samples {
		data.RPM[i] = s.RPM
		data.Angle[i] = s.Angle
	}
	return data
}

// ExportJSON writes the run as indented JSON to w.
func ExportJSON(w io.Writer, network, controller string, cfg sim.Config, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(network, controller, cfg, result))
}

func ExportJSONFile(path, network, controller string, cfg sim.Config, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportJSON(file, network, controller, cfg, result)
}

// Result rebuilds a result from stored data. Angles are not stored and read
// back as zero.
func (s *Series) Result(meta *RunMetadata) *sim.Result {
	r := &sim.Result{
		Parts:   s.Parts,
		Times:   s.Times,
		Samples: make([]sim.Sample, len(s.RPM)),
		Metrics: meta.Metrics,
		Stats:   meta.Stats,
	}
	r.Disabled = meta.Disabled
	if len(s.RPM) > 0 {
		r.StepsTaken = len(s.RPM) - 1
	}
	for i, row := range s.RPM {
		r.Samples[i] = sim.Sample{
			RPM:     row,
			Angle:   make([]float64, len(row)),
			Enabled: make([]bool, len(row)),
		}
	}
	return r
}
