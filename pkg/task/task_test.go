package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/shouni/go-pmda-docs/pkg/task"
	"github.com/stretchr/testify/assert"
)

func TestRunnerLifecycle(t *testing.T) {
	var transitions []task.State
	runner := task.NewRunner(func(s task.State) {
		transitions = append(transitions, s)
	})

	assert.Equal(t, task.StateIdle, runner.State())

	ctx, err := runner.Start(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, task.StateRunning, runner.State())
	assert.NoError(t, ctx.Err())

	runner.Cancel()
	assert.Equal(t, task.StateCancelRequested, runner.State())
	assert.Error(t, ctx.Err())

	runner.Finish()
	assert.Equal(t, task.StateCompleted, runner.State())

	assert.Equal(t, []task.State{
		task.StateRunning,
		task.StateCancelRequested,
		task.StateCompleted,
	}, transitions)
}

// TestRunnerExclusive は、実行中に2つ目の実行を開始できないことを確認します。
func TestRunnerExclusive(t *testing.T) {
	runner := task.NewRunner(nil)

	_, err := runner.Start(context.Background())
	assert.NoError(t, err)

	_, err = runner.Start(context.Background())
	assert.ErrorIs(t, err, task.ErrAlreadyRunning)

	runner.Finish()

	// 完了後は再実行できる
	_, err = runner.Start(context.Background())
	assert.NoError(t, err)
	runner.Finish()
}

func TestRunnerCancelWhenIdle(t *testing.T) {
	runner := task.NewRunner(nil)
	runner.Cancel() // 実行中でなければ何もしない
	assert.Equal(t, task.StateIdle, runner.State())
}

func TestSleep(t *testing.T) {
	t.Run("zero_duration_returns_immediately", func(t *testing.T) {
		start := time.Now()
		task.Sleep(context.Background(), 0)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("cancelled_context_does_not_block", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		task.Sleep(ctx, 10*time.Second)
		assert.Less(t, time.Since(start), time.Second)
	})
}
