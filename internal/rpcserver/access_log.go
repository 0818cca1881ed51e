package rpcserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cairnmsg/mlscore/internal/config"
)

// accessLogger writes one line per RPC request, rotated by lumberjack
// when cfg.Log.File is set, mirrored to a TTY-aware colorable stdout
// when the process is attached to a terminal.
type accessLogger struct {
	out    io.Writer
	closer io.Closer
}

// newAccessLogger builds the sink described by cfg.Log. Returns a
// logger writing to stdout alone if no file is configured.
func newAccessLogger(cfg *config.Config) *accessLogger {
	if cfg.Log.File == "" {
		return &accessLogger{out: os.Stdout}
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}
	out := io.Writer(rotator)
	if cfg.Log.ToTTY && isatty.IsTerminal(os.Stdout.Fd()) {
		out = io.MultiWriter(rotator, colorable.NewColorableStdout())
	}
	return &accessLogger{out: out, closer: rotator}
}

func (a *accessLogger) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// wrap returns handler instrumented to log method, path, status, and
// latency for every RPC call.
func (a *accessLogger) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(sw, r)
		fmt.Fprintf(a.out, "%s %s %s %d %s\n",
			start.Format(time.RFC3339), r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
