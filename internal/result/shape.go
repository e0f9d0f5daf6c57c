// Package result turns a raw analysis response into the structures the view
// draws: chart series for the equipment distribution and flat summary rows.
// Everything here is pure; inputs are never modified.
package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DistributionField is the reserved result field holding category counts.
const DistributionField = "equipment_type_distribution"

// DegradedMessage is shown when a successful response body is not a JSON object.
const DegradedMessage = "Upload successful"

// Pair is one bar of the distribution chart.
type Pair struct {
	Label string
	Count float64
}

// ChartSeries keeps the category order of the distribution object.
type ChartSeries []Pair

// Max returns the largest count, or 0 for an empty series.
func (s ChartSeries) Max() float64 {
	var m float64
	for _, p := range s {
		if p.Count > m {
			m = p.Count
		}
	}
	return m
}

// Row is one line of the summary table.
type Row struct {
	Label string
	Value string
}

// DegradedResult wraps a body that could not be parsed.
func DegradedResult(raw string) *Object {
	o := NewObject()
	o.Set("message", StringValue(DegradedMessage))
	o.Set("raw", StringValue(raw))
	return o
}

// DeriveChartSeries returns the distribution as ordered pairs. ok is false when
// the result is nil or carries no distribution object. Entries that are not
// numbers are kept with a zero count.
func DeriveChartSeries(r *Object) (series ChartSeries, ok bool) {
	dist := distribution(r)
	if dist == nil {
		return nil, false
	}
	series = make(ChartSeries, 0, dist.Len())
	for _, f := range dist.Fields() {
		n, _ := f.Value.Float()
		series = append(series, Pair{Label: f.Key, Count: n})
	}
	return series, true
}

// NonNumericCounts lists the distribution labels whose count is not a number.
func NonNumericCounts(r *Object) []string {
	var labels []string
	for _, f := range distribution(r).Fields() {
		if _, ok := f.Value.Float(); !ok {
			labels = append(labels, f.Key)
		}
	}
	return labels
}

func distribution(r *Object) *Object {
	if r == nil {
		return nil
	}
	v, ok := r.Get(DistributionField)
	if !ok {
		return nil
	}
	return v.Object()
}

// DeriveSummaryRows returns one row per scalar top-level field in document
// order. Objects, arrays and null are all skipped, matching a JavaScript
// typeof check for "object".
func DeriveSummaryRows(r *Object) []Row {
	rows := []Row{}
	for _, f := range r.Fields() {
		switch f.Value.Kind() {
		case KindObject, KindArray, KindNull:
			continue
		}
		rows = append(rows, Row{
			Label: strings.ReplaceAll(f.Key, "_", " "),
			Value: f.Value.Display(),
		})
	}
	return rows
}

// Dump renders the whole result as indented JSON.
func Dump(r *Object) string {
	if r == nil {
		return "null"
	}
	b, err := r.MarshalJSON()
	if err != nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return string(b)
	}
	return out.String()
}

// ShapeKind tells which fields of a Shape are meaningful.
type ShapeKind int

const (
	// ShapeEmpty: no result yet.
	ShapeEmpty ShapeKind = iota
	// ShapeDistribution: Series is set, Rows may be empty, Text holds the
	// fallback dump when Rows is empty.
	ShapeDistribution
	// ShapeScalarOnly: Rows only.
	ShapeScalarOnly
	// ShapeRaw: Text only.
	ShapeRaw
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeEmpty:
		return "empty"
	case ShapeDistribution:
		return "distribution-bearing"
	case ShapeScalarOnly:
		return "scalar-only"
	case ShapeRaw:
		return "raw"
	}
	return "unknown"
}

// Shape is the presentation view of a result.
type Shape struct {
	Kind   ShapeKind
	Rows   []Row
	Series ChartSeries
	Text   string
}

// ShapeOf classifies a result for the view.
func ShapeOf(r *Object) Shape {
	if r == nil {
		return Shape{Kind: ShapeEmpty}
	}
	rows := DeriveSummaryRows(r)
	if series, ok := DeriveChartSeries(r); ok {
		s := Shape{Kind: ShapeDistribution, Rows: rows, Series: series}
		if len(rows) == 0 {
			s.Text = Dump(r)
		}
		return s
	}
	if len(rows) > 0 {
		return Shape{Kind: ShapeScalarOnly, Rows: rows}
	}
	return Shape{Kind: ShapeRaw, Text: Dump(r)}
}
