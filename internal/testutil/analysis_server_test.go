package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	r, err := Summarize([]byte(SampleCSV))
	require.NoError(t, err)
	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"total_count":6,"average_flowrate":107.167,"average_pressure":5.267,"average_temperature":114.167,"equipment_type_distribution":{"Pump":3,"Valve":2,"Reactor":1}}`, string(b))
}

func TestSummarize_TiesKeepFirstAppearance(t *testing.T) {
	csv := "Type,Flowrate,Pressure,Temperature\n" +
		"Valve,1,1,1\n" +
		"Pump,1,1,1\n" +
		"Reactor,1,1,1\n" +
		"Pump,1,1,1\n" +
		"Reactor,1,1,1\n"
	r, err := Summarize([]byte(csv))
	require.NoError(t, err)
	dist, ok := r.Get("equipment_type_distribution")
	require.True(t, ok)
	var labels []string
	for _, f := range dist.Object().Fields() {
		labels = append(labels, f.Key)
	}
	assert.Equal(t, []string{"Pump", "Reactor", "Valve"}, labels)
}

func TestSummarize_MissingColumn(t *testing.T) {
	_, err := Summarize([]byte("Type,Flowrate\nPump,1\n"))
	assert.ErrorContains(t, err, `missing column "Pressure"`)
}
