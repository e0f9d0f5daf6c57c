package upload

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/eqviz-cli/internal/result"
	"github.com/KaramelBytes/eqviz-cli/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeTransport answers each call with the next scripted outcome.
type fakeTransport struct {
	mu      sync.Mutex
	calls   int32
	replies []func() (*Response, error)
}

func (f *fakeTransport) Upload(_ context.Context, _ SelectedFile, id string) (*Response, error) {
	n := atomic.AddInt32(&f.calls, 1) - 1
	f.mu.Lock()
	reply := f.replies[int(n)%len(f.replies)]
	f.mu.Unlock()
	resp, err := reply()
	if resp != nil {
		resp.RequestID = id
	}
	return resp, err
}

func ok(body string) func() (*Response, error) {
	return func() (*Response, error) { return &Response{StatusCode: 200, Body: body}, nil }
}

func csvFile() SelectedFile {
	return SelectedFile{Name: "plant.csv", Content: []byte(testutil.SampleCSV)}
}

func TestSubmitWithoutFileIsValidationError(t *testing.T) {
	tr := &fakeTransport{replies: []func() (*Response, error){ok("{}")}}
	c := NewController(tr)

	err := c.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "no file selected", err.Error())
	assert.Zero(t, atomic.LoadInt32(&tr.calls))

	s := c.Snapshot()
	assert.Equal(t, Failed, s.Phase)
	assert.Nil(t, s.Result)
	assert.Equal(t, "no file selected", s.ErrorMessage())
	assert.False(t, c.CanSubmit())
}

func TestSubmitSuccessParsesResult(t *testing.T) {
	tr := &fakeTransport{replies: []func() (*Response, error){
		ok(`{"equipment_type_distribution": {"Pump": 3, "Valve": 5}}`),
	}}
	c := NewController(tr)
	c.SelectFile(csvFile())

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, Succeeded, s.Phase)
	assert.False(t, s.Degraded)
	assert.Nil(t, s.Err)
	assert.NotEmpty(t, s.RequestID)
	assert.Zero(t, s.InFlight)

	series, found := result.DeriveChartSeries(s.Result)
	require.True(t, found)
	assert.Equal(t, result.ChartSeries{{Label: "Pump", Count: 3}, {Label: "Valve", Count: 5}}, series)
	assert.Equal(t, result.ShapeDistribution, result.ShapeOf(s.Result).Kind)
	assert.NotEmpty(t, result.ShapeOf(s.Result).Text)
}

func TestSubmitMalformedBodyIsDegradedSuccess(t *testing.T) {
	tr := &fakeTransport{replies: []func() (*Response, error){ok("not json")}}
	c := NewController(tr)
	c.SelectFile(csvFile())

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, Succeeded, s.Phase)
	assert.True(t, s.Degraded)
	b, err := s.Result.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "Upload successful", "raw": "not json"}`, string(b))
}

func TestSubmitDeeplyNestedBodyIsDegradedSuccess(t *testing.T) {
	body := `{"a":` + strings.Repeat("[", 3*result.MaxDepth) + strings.Repeat("]", 3*result.MaxDepth) + `}`
	c := NewController(&fakeTransport{replies: []func() (*Response, error){ok(body)}})
	c.SelectFile(csvFile())

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, Succeeded, s.Phase)
	assert.True(t, s.Degraded)
	raw, found := s.Result.Get("raw")
	require.True(t, found)
	assert.Equal(t, body, raw.Display())
}

func TestSubmitLogsNonNumericCounts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := NewController(&fakeTransport{replies: []func() (*Response, error){
		ok(`{"equipment_type_distribution": {"Pump": "many", "Valve": 2}}`),
	}}, WithLogger(zap.New(core)))
	c.SelectFile(csvFile())

	require.NoError(t, c.Submit(context.Background()))
	entries := logs.FilterMessage("distribution counts are not numbers, charting them as 0").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"Pump"}, entries[0].ContextMap()["labels"])
}

func TestSnapshotResultIsACopy(t *testing.T) {
	c := NewController(&fakeTransport{replies: []func() (*Response, error){ok(`{"total_count": 1}`)}})
	c.SelectFile(csvFile())
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	snap.Result.Set("injected", result.StringValue("x"))
	snap.File.Name = "renamed.csv"

	again := c.Snapshot()
	_, found := again.Result.Get("injected")
	assert.False(t, found)
	assert.Equal(t, 1, again.Result.Len())
	assert.Equal(t, "plant.csv", again.File.Name)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		reply   func() (*Response, error)
		check   func(error) bool
		message string
	}{
		{
			name:    "server error",
			reply:   func() (*Response, error) { return nil, &RequestError{StatusCode: http.StatusInternalServerError} },
			check:   IsRequest,
			message: "server responded with an error",
		},
		{
			name:    "transport error with message",
			reply:   func() (*Response, error) { return nil, &ConnectionError{Err: errors.New("dial tcp: connection refused")} },
			check:   IsConnection,
			message: "dial tcp: connection refused",
		},
		{
			name:    "transport error without message",
			reply:   func() (*Response, error) { return nil, &ConnectionError{} },
			check:   IsConnection,
			message: "connection failed",
		},
		{
			name:    "untyped error",
			reply:   func() (*Response, error) { return nil, errors.New("boom") },
			check:   IsConnection,
			message: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeTransport{replies: []func() (*Response, error){tt.reply}})
			c.SelectFile(csvFile())

			err := c.Submit(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err))

			s := c.Snapshot()
			assert.Equal(t, Failed, s.Phase)
			assert.Nil(t, s.Result)
			assert.Equal(t, tt.message, s.ErrorMessage())
			assert.True(t, c.CanSubmit())
		})
	}
}

func TestSelectFileKeepsPreviousOutcome(t *testing.T) {
	c := NewController(&fakeTransport{replies: []func() (*Response, error){ok(`{"total_count": 1}`)}})
	c.SelectFile(csvFile())
	require.NoError(t, c.Submit(context.Background()))

	c.SelectFile(SelectedFile{Name: "other.csv", Content: []byte("a,b\n")})
	s := c.Snapshot()
	assert.Equal(t, Succeeded, s.Phase)
	require.NotNil(t, s.Result)
	assert.Equal(t, "other.csv", s.File.Name)
}

func TestSubmitClearsPreviousOutcomeWhileLoading(t *testing.T) {
	release := make(chan struct{})
	var phases []Phase
	var mu sync.Mutex
	tr := &fakeTransport{replies: []func() (*Response, error){
		func() (*Response, error) { return nil, &RequestError{StatusCode: 500} },
		func() (*Response, error) { <-release; return &Response{StatusCode: 200, Body: `{"a": 1}`}, nil },
	}}
	c := NewController(tr, WithObserver(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
		if s.Phase == Loading {
			assert.Nil(t, s.Err)
			assert.Nil(t, s.Result)
		}
	}))
	c.SelectFile(csvFile())
	require.Error(t, c.Submit(context.Background()))

	done := c.SubmitAsync(context.Background())
	require.Eventually(t, func() bool { return c.Snapshot().Phase == Loading }, time.Second, 5*time.Millisecond)
	s := c.Snapshot()
	assert.Nil(t, s.Err)
	assert.Nil(t, s.Result)
	assert.False(t, c.CanSubmit())

	close(release)
	final := <-done
	assert.Equal(t, Succeeded, final.Phase)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{Idle, Loading, Failed, Loading, Succeeded}, phases)
}

func TestOverlappingSubmitsLastWriteWins(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	tr := &fakeTransport{replies: []func() (*Response, error){
		func() (*Response, error) { <-first; return &Response{StatusCode: 200, Body: `{"from": "first"}`}, nil },
		func() (*Response, error) { <-second; return &Response{StatusCode: 200, Body: `{"from": "second"}`}, nil },
	}}
	c := NewController(tr)
	c.SelectFile(csvFile())

	d1 := c.SubmitAsync(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&tr.calls) == 1 }, time.Second, 5*time.Millisecond)
	d2 := c.SubmitAsync(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&tr.calls) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, c.Snapshot().InFlight)

	// the second request resolves first, the first one arrives last
	close(second)
	s2 := <-d2
	assert.Equal(t, Succeeded, s2.Phase)
	close(first)
	s1 := <-d1

	final := c.Snapshot()
	assert.Equal(t, s1.RequestID, final.RequestID)
	v, found := final.Result.Get("from")
	require.True(t, found)
	assert.Equal(t, "first", v.Display())
	assert.Zero(t, final.InFlight)
}

func TestSerializedPolicyRejectsWhileLoading(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTransport{replies: []func() (*Response, error){
		func() (*Response, error) { <-release; return &Response{StatusCode: 200, Body: `{"n": 1}`}, nil },
	}}
	c := NewController(tr, WithPolicy(Serialized))
	c.SelectFile(csvFile())

	done := c.SubmitAsync(context.Background())
	require.Eventually(t, func() bool { return c.Snapshot().Phase == Loading }, time.Second, 5*time.Millisecond)
	loadingID := c.Snapshot().RequestID

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, loadingID, c.Snapshot().RequestID)

	busy := <-c.SubmitAsync(context.Background())
	assert.Equal(t, Loading, busy.Phase)

	close(release)
	final := <-done
	assert.Equal(t, Succeeded, final.Phase)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
}

func TestControllerAgainstAnalysisService(t *testing.T) {
	svc := testutil.NewAnalysisService(t)
	c := NewController(NewClient(svc.URL, 2*time.Second, nil))
	c.SelectFile(csvFile())

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	require.Equal(t, Succeeded, s.Phase)
	rows := result.DeriveSummaryRows(s.Result)
	require.Len(t, rows, 4)
	assert.Equal(t, result.Row{Label: "total count", Value: "6"}, rows[0])

	ups := svc.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, s.RequestID, ups[0].RequestID)

	svc.Script(testutil.Reply{Status: http.StatusBadGateway, Body: "upstream down"})
	err := c.Submit(context.Background())
	assert.True(t, IsRequest(err))
	assert.Equal(t, Failed, c.Snapshot().Phase)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, p)
	p, err = ParsePolicy("serialized")
	require.NoError(t, err)
	assert.Equal(t, Serialized, p)
	_, err = ParsePolicy("queue")
	assert.Error(t, err)
}
