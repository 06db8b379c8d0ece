package emitter

import (
	"github.com/lk2023060901/graphdoc-go/pkg/events"
)

// Recorder 在内存中记录经过校验的事件流。
type Recorder struct {
	state  streamState
	events []events.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e events.Event) error {
	if err := r.state.validate(e); err != nil {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []events.Event {
	return r.events
}

// Lines 以 YAML test-suite 事件格式返回记录的事件。
func (r *Recorder) Lines() []string {
	lines := make([]string, 0, len(r.events))
	for _, e := range r.events {
		lines = append(lines, e.String())
	}
	return lines
}

// Replay 将记录的事件依次写入另一个 Emitter。
func (r *Recorder) Replay(dst Emitter) error {
	for _, e := range r.events {
		if err := dst.Emit(e); err != nil {
			return err
		}
	}
	return nil
}
