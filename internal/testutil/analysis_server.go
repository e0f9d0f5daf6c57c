// Package testutil provides an in-process stand-in for the analysis service.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/KaramelBytes/eqviz-cli/internal/parser"
	"github.com/KaramelBytes/eqviz-cli/internal/result"
	"github.com/labstack/echo/v4"
)

// Reply scripts one response of the upload endpoint.
type Reply struct {
	Status int
	Body   string
	// Release, when set, holds the response until the channel is closed.
	Release <-chan struct{}
}

// Upload records what the service received.
type Upload struct {
	Filename  string
	Content   []byte
	RequestID string
	FieldName string
}

// ReportPDF is the body served by the report endpoint.
var ReportPDF = []byte("%PDF-1.4\n% eqviz test report\n%%EOF\n")

// AnalysisService mimics the upload and report endpoints.
type AnalysisService struct {
	URL string

	srv *http.Server
	ln  net.Listener

	mu           sync.Mutex
	script       []Reply
	uploads      []Upload
	reportHits   int
	reportUser   string
	reportPass   string
	reportStatus int
	started      chan string
}

// NewAnalysisService starts the service on a loopback tcp4 listener and
// registers cleanup with t.
func NewAnalysisService(t *testing.T) *AnalysisService {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	s := &AnalysisService{
		URL:     "http://" + ln.Addr().String(),
		ln:      ln,
		started: make(chan string, 16),
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.registerRoutes(e)
	s.srv = &http.Server{Handler: e}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	t.Cleanup(s.Close)
	return s
}

func (s *AnalysisService) registerRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/upload/", s.handleUpload)
	api.GET("/report/", s.handleReport)
}

// Close stops the server.
func (s *AnalysisService) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// Script queues replies for the next uploads; once exhausted the service
// analyzes the CSV like the real backend.
func (s *AnalysisService) Script(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, replies...)
}

// RequireReportAuth protects the report endpoint with basic auth.
func (s *AnalysisService) RequireReportAuth(user, pass string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportUser, s.reportPass = user, pass
}

// FailReport makes the report endpoint answer with status.
func (s *AnalysisService) FailReport(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportStatus = status
}

// Uploads returns the uploads received so far.
func (s *AnalysisService) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// ReportHits returns how many times the report endpoint was requested.
func (s *AnalysisService) ReportHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportHits
}

// Started yields the request id of each upload as it reaches the handler.
func (s *AnalysisService) Started() <-chan string { return s.started }

func (s *AnalysisService) handleUpload(c echo.Context) error {
	up := Upload{RequestID: c.Request().Header.Get("X-Request-Id")}
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		up.Content, _ = io.ReadAll(f)
		f.Close()
		up.Filename = fh.Filename
		up.FieldName = "file"
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	var reply *Reply
	if len(s.script) > 0 {
		r := s.script[0]
		s.script = s.script[1:]
		reply = &r
	}
	s.mu.Unlock()

	select {
	case s.started <- up.RequestID:
	default:
	}

	if reply != nil {
		if reply.Release != nil {
			<-reply.Release
		}
		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		return c.String(status, reply.Body)
	}

	if up.FieldName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
	}
	summary, err := Summarize(up.Content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	b, err := summary.MarshalJSON()
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, b)
}

func (s *AnalysisService) handleReport(c echo.Context) error {
	s.mu.Lock()
	s.reportHits++
	user, pass, status := s.reportUser, s.reportPass, s.reportStatus
	hasData := len(s.uploads) > 0
	s.mu.Unlock()

	if status != 0 {
		return c.String(status, "report unavailable")
	}
	if user != "" {
		u, p, ok := c.Request().BasicAuth()
		if !ok || u != user || p != pass {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		}
	}
	if !hasData {
		return c.String(http.StatusNotFound, "No data available")
	}
	c.Response().Header().Set("Content-Disposition", "attachment; filename=equipment_report.pdf")
	return c.Blob(http.StatusOK, "application/pdf", ReportPDF)
}

// Summarize computes the summary the analysis backend returns for an
// equipment CSV with Type, Flowrate, Pressure and Temperature columns.
func Summarize(content []byte) (*result.Object, error) {
	records, err := parser.ReadCSV(content, parser.SniffDelimiter("", content))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty csv")
	}
	col := map[string]int{}
	for i, h := range records[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"Type", "Flowrate", "Pressure", "Temperature"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	rows := records[1:]

	counts := map[string]int{}
	var order []string
	sums := map[string]float64{}
	for i, rec := range rows {
		if len(rec) < len(records[0]) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+2, len(records[0]), len(rec))
		}
		typ := rec[col["Type"]]
		if _, seen := counts[typ]; !seen {
			order = append(order, typ)
		}
		counts[typ]++
		for _, name := range []string{"Flowrate", "Pressure", "Temperature"} {
			f, err := strconv.ParseFloat(strings.TrimSpace(rec[col[name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			sums[name] += f
		}
	}
	// most frequent first, ties keep first appearance
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	avg := func(name string) result.Value {
		if len(rows) == 0 {
			return result.NumberValue("0")
		}
		v := math.Round(sums[name]/float64(len(rows))*1000) / 1000
		return result.NumberValue(strconv.FormatFloat(v, 'f', -1, 64))
	}
	dist := result.NewObject()
	for _, typ := range order {
		dist.Set(typ, result.IntValue(int64(counts[typ])))
	}
	out := result.NewObject()
	out.Set("total_count", result.IntValue(int64(len(rows))))
	out.Set("average_flowrate", avg("Flowrate"))
	out.Set("average_pressure", avg("Pressure"))
	out.Set("average_temperature", avg("Temperature"))
	out.Set(result.DistributionField, result.ObjectValue(dist))
	return out, nil
}

// SampleCSV is a small equipment dataset.
const SampleCSV = "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
	"Pump-1,Pump,120,5.2,110\n" +
	"Valve-1,Valve,60,4.1,105\n" +
	"Pump-2,Pump,132,5.6,115\n" +
	"Reactor-1,Reactor,150,7.5,140\n" +
	"Valve-2,Valve,63,4.2,107\n" +
	"Pump-3,Pump,118,5.0,108\n"
