package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_NamedThenCatchAll(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter()

	var order []string

	emitter.OnAll(func(_ context.Context, ev Event) { order = append(order, "all:"+ev.Name) })
	emitter.On("hide", func(_ context.Context, ev Event) { order = append(order, "named:"+ev.Name) })

	emitter.Raw(t.Context(), "hide", false, []any{"x"})

	assert.Equal(t, []string{"named:hide", "all:hide"}, order)
}

func TestEmitter_SilentHidesLifecycleFromCatchAll(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter()
	emitter.SetSilent(true)

	var all, named []string

	emitter.OnAll(func(_ context.Context, ev Event) { all = append(all, ev.Name) })
	emitter.On("transition", func(_ context.Context, ev Event) { named = append(named, ev.Name) })
	emitter.On("showTime", func(_ context.Context, ev Event) { named = append(named, ev.Name) })

	ctx := t.Context()
	emitter.Raw(ctx, "show", false, nil)
	emitter.LeaveState(ctx, "hidden", nil)
	emitter.Transition(ctx, "hidden", "visible", nil)
	emitter.Raw(ctx, "showTime", true, nil)
	emitter.EnterState(ctx, "visible", nil)
	emitter.Emit(ctx, Event{Kind: EventCustom, Name: "change"})

	assert.Equal(t, []string{"show", "change"}, all)
	assert.Equal(t, []string{"transition", "showTime"}, named)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter()
	count := 0

	off := emitter.On("tick", func(context.Context, Event) { count++ })
	offAll := emitter.OnAll(func(context.Context, Event) { count++ })

	emitter.Raw(t.Context(), "tick", false, nil)
	off()
	offAll()
	emitter.Raw(t.Context(), "tick", false, nil)

	assert.Equal(t, 2, count)
}

func TestEmitter_ListenerMaySubscribeDuringEmit(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter()
	late := 0

	emitter.On("tick", func(context.Context, Event) {
		emitter.On("tick", func(context.Context, Event) { late++ })
	})

	emitter.Raw(t.Context(), "tick", false, nil)
	assert.Equal(t, 0, late)

	emitter.Raw(t.Context(), "tick", false, nil)
	assert.Equal(t, 1, late)
}

func TestEvent_Values(t *testing.T) {
	t.Parallel()

	tr := Event{Kind: EventTransition, Name: "transition", From: "a", To: "b", Args: []any{1}}
	assert.Equal(t, []any{"a", "b", 1}, tr.Values())
	assert.True(t, tr.IsLifecycle())

	raw := Event{Kind: EventRaw, Name: "go", Args: []any{1, 2}}
	assert.Equal(t, []any{1, 2}, raw.Values())
	assert.False(t, raw.IsLifecycle())

	assert.Equal(t, "enterState", EventEnterState.String())
}
