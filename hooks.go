package identity

import (
	"context"
	"fmt"
)

// PostCommitHook runs after a primary state change has durably committed.
// Hook failures are logged and swallowed; they never surface as a failure of
// the operation that already committed.
type PostCommitHook func(ctx context.Context) error

type hookList struct {
	hooks  []PostCommitHook
	logger Logger
}

func newHookList(logger Logger) *hookList {
	if logger == nil {
		logger = defLogger{}
	}
	return &hookList{logger: logger}
}

func (l *hookList) add(hook PostCommitHook) {
	if hook != nil {
		l.hooks = append(l.hooks, hook)
	}
}

// run executes every hook independently. A panicking or failing hook cannot
// mask another hook's failure or the already-committed primary result.
func (l *hookList) run(ctx context.Context) {
	for i, hook := range l.hooks {
		if err := l.runOne(ctx, hook); err != nil {
			l.logger.Warn("post-commit hook %d failed: %v", i, err)
		}
	}
}

func (l *hookList) runOne(ctx context.Context, hook PostCommitHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return hook(ctx)
}
