package core

import (
	"fmt"
	"sync/atomic"
)

// TraceWriter receives one line per traced driver action (register
// programming, interrupt toggles, streaming state).
type TraceWriter func(string)

var (
	traceWriter  atomic.Value // TraceWriter
	traceEnabled atomic.Bool
)

// SetTraceWriter installs the trace sink and enables tracing. Passing
// nil disables tracing again.
func SetTraceWriter(w TraceWriter) {
	if w == nil {
		traceEnabled.Store(false)
		return
	}
	traceWriter.Store(w)
	traceEnabled.Store(true)
}

func tracef(format string, args ...any) {
	if !traceEnabled.Load() {
		return
	}
	if w, ok := traceWriter.Load().(TraceWriter); ok && w != nil {
		w(fmt.Sprintf(format, args...))
	}
}
