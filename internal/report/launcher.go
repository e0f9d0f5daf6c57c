// Package report retrieves the generated report document. Nothing here reads
// or writes upload state.
package report

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/KaramelBytes/eqviz-cli/internal/logging"
	"go.uber.org/zap"
)

// DefaultReportPath is the report endpoint.
const DefaultReportPath = "/api/report/"

// URL joins the service base URL and the report path.
func URL(baseURL, path string) string {
	if path == "" {
		path = DefaultReportPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}

// Opener hands a URL to something that can display it.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// BrowserOpener opens URLs with the system browser, or with Command when set.
type BrowserOpener struct {
	Command string
}

func (b BrowserOpener) Open(ctx context.Context, url string) error {
	name, args := b.command(url)
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	// reap the child without blocking the caller
	go func() { _ = cmd.Wait() }()
	return nil
}

func (b BrowserOpener) command(url string) (string, []string) {
	if fields := strings.Fields(b.Command); len(fields) > 0 {
		return fields[0], append(fields[1:], url)
	}
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// Launcher opens the report in a new browsing context. It has no result and
// reports nothing back; failures are only logged.
type Launcher struct {
	url    string
	opener Opener
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewLauncher(url string, opener Opener, logger *zap.Logger) *Launcher {
	if opener == nil {
		opener = BrowserOpener{}
	}
	return &Launcher{url: url, opener: opener, logger: logging.OrNop(logger)}
}

// URL returns the report address handed to the opener.
func (l *Launcher) URL() string { return l.url }

// Launch fires the open request in the background and returns immediately.
func (l *Launcher) Launch() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.open()
	}()
}

// Wait blocks until launches started so far have handed off to the opener.
// A short-lived process calls it before exiting.
func (l *Launcher) Wait() { l.wg.Wait() }

func (l *Launcher) open() {
	l.logger.Debug("opening report", zap.String("url", l.url))
	if err := l.opener.Open(context.Background(), l.url); err != nil {
		l.logger.Warn("report launch failed", zap.String("url", l.url), zap.Error(err))
	}
}
