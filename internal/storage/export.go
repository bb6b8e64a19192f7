package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/linksim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
	Energy []float64   `json:"energy,omitempty"`
}

// ExportJSON writes the metadata and the full trajectory as one document.
func ExportJSON(w io.Writer, meta *RunMetadata, result *dynamo.Result, energy []float64) error {
	data := ExportData{
		RunMetadata: *meta,
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Energy:      energy,
	}
	for i, s := range result.States {
		data.States[i] = s
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WriteCSV writes one row per sample: time, the state and, when given, the
// energy.
func WriteCSV(w io.Writer, result *dynamo.Result, energy []float64) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, StateColumns...)
	if energy != nil {
		header = append(header, "energy")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, x := range result.States {
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(result.Times[i]))
		for _, v := range x {
			row = append(row, formatFloat(v))
		}
		if energy != nil {
			row = append(row, formatFloat(energy[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
