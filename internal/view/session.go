package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/KaramelBytes/eqviz-cli/internal/report"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
)

const sessionHelp = `Commands:
  select <path>   choose the CSV file to analyze
  submit          upload the selected file
  report          open the PDF report in the browser
  status          redraw the dashboard
  help            show this help
  quit            leave the session, cancelling pending uploads
`

// Session reads user intents line by line and turns them into controller
// and launcher calls, redrawing after every state change.
type Session struct {
	ctrl     *upload.Controller
	launcher *report.Launcher
	renderer *Renderer

	in  io.Reader
	out io.Writer

	outMu   sync.Mutex
	pending sync.WaitGroup
	closing atomic.Bool
}

func NewSession(ctrl *upload.Controller, launcher *report.Launcher, renderer *Renderer, in io.Reader, out io.Writer) *Session {
	if renderer == nil {
		renderer = NewRenderer(0, false)
	}
	return &Session{ctrl: ctrl, launcher: launcher, renderer: renderer, in: in, out: out}
}

// Run processes intents until quit, end of input or ctx cancellation.
// At end of input it waits for uploads started during the session; quit
// cancels them first.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	quit, err := s.loop(ctx)
	if quit || err != nil {
		s.closing.Store(true)
		cancel()
	}
	s.pending.Wait()
	return err
}

func (s *Session) loop(ctx context.Context) (quit bool, err error) {
	s.draw()
	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "select", "open":
			s.Select(arg)
		case "submit", "analyze":
			s.submit(ctx)
		case "report", "download":
			s.downloadReport()
		case "status":
			s.draw()
		case "help", "?":
			s.printf("%s", sessionHelp)
		case "quit", "exit", "q":
			return true, nil
		default:
			s.printf("⚠ unknown command %q (type help)\n", cmd)
		}
	}
	return false, sc.Err()
}

// Select reads path and makes it the selected file.
func (s *Session) Select(path string) {
	if path == "" {
		s.printf("⚠ usage: select <path>\n")
		return
	}
	f, err := upload.SelectFromPath(path)
	if err != nil {
		s.printf("✗ %v\n", err)
		return
	}
	s.ctrl.SelectFile(f)
	s.draw()
}

// submit applies the view rule: no submit while loading or without a file.
func (s *Session) submit(ctx context.Context) {
	if !s.ctrl.CanSubmit() {
		snap := s.ctrl.Snapshot()
		if snap.Phase == upload.Loading {
			s.printf("⚠ an upload is already in progress\n")
		} else {
			s.printf("⚠ select a file first\n")
		}
		return
	}
	done := s.ctrl.SubmitAsync(ctx)
	s.draw()
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		<-done
		if !s.closing.Load() {
			s.draw()
		}
	}()
}

func (s *Session) downloadReport() {
	if s.launcher == nil {
		s.printf("⚠ report is not available\n")
		return
	}
	s.launcher.Launch()
	s.printf("✓ Opening report: %s\n", s.launcher.URL())
}

func (s *Session) draw() {
	m := BuildModel(s.ctrl.Snapshot(), s.reportURL())
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_ = s.renderer.Render(s.out, m)
	fmt.Fprintln(s.out)
}

func (s *Session) reportURL() string {
	if s.launcher == nil {
		return ""
	}
	return s.launcher.URL()
}

func (s *Session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
