package logging

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap/zapcore"
)

// repeatState is shared by a core and every core derived from it with With,
// so repetition is detected across the whole logger tree.
type repeatState struct {
	mu       sync.Mutex
	last     zapcore.Entry
	lastCore zapcore.Core
	fields   []zapcore.Field
	encoded  map[string]interface{}
	repeats  int
	seen     bool
}

type repeatCore struct {
	zapcore.Core
	batch   int
	context []zapcore.Field
	state   *repeatState
}

// NewRepeatCore wraps core so that an entry identical to the previous one
// (same level, logger name, message and fields) is counted instead of written. The
// count is flushed as "<message> (Nx)" when a different entry arrives, when
// it reaches batch, or on Sync.
func NewRepeatCore(core zapcore.Core, batch int) zapcore.Core {
	if batch < 1 {
		batch = 1
	}
	return &repeatCore{Core: core, batch: batch, state: &repeatState{}}
}

func (c *repeatCore) With(fields []zapcore.Field) zapcore.Core {
	context := make([]zapcore.Field, 0, len(c.context)+len(fields))
	context = append(append(context, c.context...), fields...)
	return &repeatCore{Core: c.Core.With(fields), batch: c.batch, context: context, state: c.state}
}

func (c *repeatCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *repeatCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	st := c.state
	st.mu.Lock()
	defer st.mu.Unlock()

	encoded := encodeFields(c.context, fields)
	if st.seen && sameEntry(st.last, ent) && reflect.DeepEqual(st.encoded, encoded) {
		st.repeats++
		if st.repeats >= c.batch {
			return st.flush()
		}
		return nil
	}

	err := st.flush()
	st.last = ent
	st.lastCore = c.Core
	st.fields = append(st.fields[:0], fields...)
	st.encoded = encoded
	st.seen = true
	if werr := c.Core.Write(ent, fields); werr != nil {
		return werr
	}
	return err
}

func (c *repeatCore) Sync() error {
	c.state.mu.Lock()
	err := c.state.flush()
	c.state.mu.Unlock()
	if serr := c.Core.Sync(); serr != nil {
		return serr
	}
	return err
}

// flush writes the pending repetition summary, if any. Callers hold mu.
func (st *repeatState) flush() error {
	if st.repeats == 0 {
		return nil
	}
	summary := st.last
	summary.Message = fmt.Sprintf("%s (%dx)", st.last.Message, st.repeats)
	st.repeats = 0
	return st.lastCore.Write(summary, st.fields)
}

func sameEntry(a, b zapcore.Entry) bool {
	return a.Level == b.Level && a.LoggerName == b.LoggerName && a.Message == b.Message
}

// encodeFields renders the logger context and entry fields into a map so
// entries that differ only in field values are not treated as repeats.
func encodeFields(context, fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range context {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
