package service

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LogWriter forwards process output to a zap logger one line at a time and
// keeps the last lines for error reporting.
type LogWriter struct {
	logger *zap.Logger
	stream string
	mu     sync.Mutex
	buf    bytes.Buffer
	tail   []string
}

// NewLogWriter creates a LogWriter tagging every line with stream.
func NewLogWriter(logger *zap.Logger, stream string) *LogWriter {
	return &LogWriter{logger: logger, stream: stream}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *LogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// Tail returns the last lines written, oldest first.
func (w *LogWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.tail, "\n")
}

func (w *LogWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Info(line, zap.String("stream", w.stream))
	w.tail = append(w.tail, line)
	if len(w.tail) > stderrTailLines {
		w.tail = w.tail[len(w.tail)-stderrTailLines:]
	}
}
