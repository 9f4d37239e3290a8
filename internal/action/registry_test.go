package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tools.zach/dev/flagman/internal/action"
	"tools.zach/dev/flagman/internal/action/actiontest"
)

func TestRegistry_LookupAndEntries(t *testing.T) {
	r := action.NewRegistry(actiontest.Entries(&actiontest.Log{})...)

	e, ok := r.Lookup("record")
	assert.True(t, ok)
	assert.Equal(t, "record", e.Name)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	var names []string
	for _, e := range r.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"fail", "once", "record", "reject"}, names)
}

func TestRegistry_RegisterPanics(t *testing.T) {
	noop := func([]string) (action.Action, error) { return action.StepFunc(func() error { return nil }), nil }

	assert.Panics(t, func() { action.NewRegistry(action.Entry{Factory: noop}) })
	assert.Panics(t, func() { action.NewRegistry(action.Entry{Name: "x"}) })
	assert.Panics(t, func() {
		action.NewRegistry(
			action.Entry{Name: "x", Factory: noop},
			action.Entry{Name: "x", Factory: noop},
		)
	})
}
