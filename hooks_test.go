package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHookListRunsEveryHook(t *testing.T) {
	var calls []int

	hooks := newHookList(defLogger{})
	hooks.add(func(context.Context) error {
		calls = append(calls, 1)
		return nil
	})
	hooks.add(func(context.Context) error {
		calls = append(calls, 2)
		return errors.New("boom")
	})
	hooks.add(func(context.Context) error {
		calls = append(calls, 3)
		return nil
	})

	hooks.run(context.Background())

	// a failing hook never blocks the hooks after it
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestHookListRecoversFromPanic(t *testing.T) {
	ran := false

	hooks := newHookList(defLogger{})
	hooks.add(func(context.Context) error {
		panic("hook exploded")
	})
	hooks.add(func(context.Context) error {
		ran = true
		return nil
	})

	assert.NotPanics(t, func() {
		hooks.run(context.Background())
	})
	assert.True(t, ran)
}

func TestHookListIgnoresNilHooks(t *testing.T) {
	hooks := newHookList(nil)
	hooks.add(nil)

	assert.NotPanics(t, func() {
		hooks.run(context.Background())
	})
}
