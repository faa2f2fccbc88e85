package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventWorkflowStart)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventWorkflowStart, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEmitterDispatchOrder(t *testing.T) {
	emitter := NewEmitter()

	var got []string
	emitter.SubscribeFunc(func(ev Event) { got = append(got, "first") })
	emitter.SubscribeFunc(func(ev Event) { got = append(got, "second") })

	emitter.Emit(NewEvent(EventStepStart))

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestEmitterPayload(t *testing.T) {
	emitter := NewEmitter()

	var received Event
	emitter.SubscribeFunc(func(ev Event) { received = ev })

	ev := NewEvent(EventStepComplete)
	ev.WorkflowID = "wf"
	ev.StepID = "s1"
	ev.Payload = map[string]any{"attempt": 1}
	emitter.Emit(ev)

	assert.Equal(t, "wf", received.WorkflowID)
	assert.Equal(t, "s1", received.StepID)
	assert.Equal(t, 1, received.Payload["attempt"])
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *Emitter

	assert.NotPanics(t, func() {
		emitter.Subscribe(ObserverFunc(func(ev Event) {}))
		emitter.Emit(NewEvent(EventToolCall))
	})
}

func TestEmitterConcurrentSubscribeEmit(t *testing.T) {
	emitter := NewEmitter()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			emitter.SubscribeFunc(func(ev Event) {})
		}()
		go func() {
			defer wg.Done()
			emitter.Emit(NewEvent(EventExecutionStep))
		}()
	}
	wg.Wait()
}
