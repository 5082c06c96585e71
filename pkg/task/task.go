package task

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyRunning は、実行中のタスクに対して再度 Start を呼んだ場合のエラーです。
var ErrAlreadyRunning = errors.New("タスクは既に実行中です")

// State は長時間タスクの実行状態を表します。
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelRequested
	StateCompleted
)

// String は State の表示名を返します。
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCancelRequested:
		return "CancelRequested"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Runner は、1種類のタスクにつき同時に1つの実行だけを許可する実行管理です。
// 制御側 (CLIやシグナルハンドラ) とワーカーの間で共有されるのは実行状態と
// キャンセル要求だけで、キャンセルは context 経由で協調的に伝播します。
// 状態遷移は onChange コールバックで通知されます (nil 可)。
type Runner struct {
	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	onChange func(State)
}

// NewRunner は新しい Runner を生成します。
func NewRunner(onChange func(State)) *Runner {
	return &Runner{onChange: onChange}
}

// Start は新しい実行を開始し、ワーカーへ渡す context を返します。
// すでに実行中の場合は ErrAlreadyRunning を返します。
func (r *Runner) Start(parent context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRunning || r.state == StateCancelRequested {
		return nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.setStateLocked(StateRunning)
	return ctx, nil
}

// Cancel は実行中のタスクへ中止を要求します。実行中でなければ何もしません。
// 要求は即時の中断ではなく、ワーカーが次のチェックポイントで検知します。
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return
	}
	r.setStateLocked(StateCancelRequested)
	r.cancel()
}

// Finish は実行の終了を記録します。ワーカーの完了時 (中断時も含む) に呼びます。
func (r *Runner) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.setStateLocked(StateCompleted)
}

// State は現在の実行状態を返します。
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setStateLocked(s State) {
	r.state = s
	if r.onChange != nil {
		r.onChange(s)
	}
}

// Sleep は ctx のキャンセルを尊重して d だけ待機します。
// サーバー負荷を抑えるためのリクエスト間隔の待機に使用します。
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
