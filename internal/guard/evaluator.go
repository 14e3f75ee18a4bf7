package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/bakery/internal/session"
)

// ErrSuperseded は評価中に同じクライアントで新しい遷移が開始されたことを示す。
// 古い遷移の判定は破棄し、リダイレクトを適用してはならない。
var ErrSuperseded = errors.New("navigation attempt superseded")

// SessionSource はガード評価が参照するセッションストアの読み取り専用インターフェース。
// session.Storeが満たす。
type SessionSource interface {
	Snapshot() session.Snapshot
	Changed() <-chan struct{}
}

// AttemptTracker はクライアントごとの遷移試行の世代を管理する。
// navigation.Attemptsが満たす。
type AttemptTracker interface {
	Current(attempt uint64) bool
}

// PolicySource は現在有効なポリシーを返す。
type PolicySource interface {
	Current() *Policy
}

// Recorder はガード評価のメトリクス記録インターフェース。
type Recorder interface {
	RecordGuardDecision(class, outcome string)
	RecordRestoreWait(d time.Duration, timedOut bool)
}

// Request は1回の遷移試行。
type Request struct {
	// Target はクエリ文字列を含む遷移先。
	Target string
	// Attempt はTrackerが発行した遷移試行の番号。
	Attempt uint64
	// Tracker がnilの場合は世代チェックを行わない。
	Tracker AttemptTracker
}

// Evaluator はポリシーに従って遷移の許可・リダイレクトを判定する。
type Evaluator struct {
	policies PolicySource
	recorder Recorder
	logger   *slog.Logger
}

// NewEvaluator はEvaluatorを生成する。recorderはnilでもよい。
func NewEvaluator(policies PolicySource, recorder Recorder, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		policies: policies,
		recorder: recorder,
		logger:   logger,
	}
}

// Evaluate は遷移試行を評価する。
//
// セッションが復元中の場合は、状態変化の通知と上限タイマーを競合させて待機する。
// 復元が完了するかプロフィールが現れた時点で評価を再開し、
// 上限に達した場合はその時点の状態（何も読み込まれていなければ未ログイン）で評価する。
// 待機中に新しい遷移が開始された場合はErrSuperseded、
// リクエストがキャンセルされた場合はctx.Err()を返す。
func (e *Evaluator) Evaluate(ctx context.Context, store SessionSource, req Request) (Decision, error) {
	policy := e.policies.Current()

	snap, err := e.waitForRestore(ctx, store, policy.WaitCeiling)
	if err != nil {
		return Decision{}, err
	}

	if req.Tracker != nil && !req.Tracker.Current(req.Attempt) {
		e.logger.Debug("guard decision discarded",
			slog.String("target", req.Target),
			slog.Uint64("attempt", req.Attempt),
		)
		return Decision{}, ErrSuperseded
	}

	d := policy.Decide(snap, req.Target)
	if e.recorder != nil {
		e.recorder.RecordGuardDecision(d.Class.String(), string(d.Outcome))
	}
	if !d.Allowed() {
		e.logger.Info("navigation denied",
			slog.String("target", req.Target),
			slog.String("state", snap.State().String()),
			slog.String("class", d.Class.String()),
			slog.String("redirect", d.Location()),
		)
	}
	return d, nil
}

// waitForRestore は復元中であれば完了まで待機し、評価に用いるスナップショットを返す。
// 上限到達時は復元完了として扱い、Loadingを落としたスナップショットを返す。
func (e *Evaluator) waitForRestore(ctx context.Context, store SessionSource, ceiling time.Duration) (session.Snapshot, error) {
	snap := store.Snapshot()
	if !restoring(snap) {
		return snap, nil
	}

	start := time.Now()
	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	for {
		// チャネルを先に取得し、取得後の変化を取りこぼさない
		changed := store.Changed()
		snap = store.Snapshot()
		if !restoring(snap) {
			e.recordWait(time.Since(start), false)
			return snap, nil
		}

		select {
		case <-changed:
		case <-timer.C:
			elapsed := time.Since(start)
			e.recordWait(elapsed, true)
			e.logger.Warn("session restore wait timed out",
				slog.Duration("ceiling", ceiling),
				slog.Duration("elapsed", elapsed),
			)
			snap = store.Snapshot()
			snap.Loading = false
			return snap, nil
		case <-ctx.Done():
			return session.Snapshot{}, ctx.Err()
		}
	}
}

func (e *Evaluator) recordWait(d time.Duration, timedOut bool) {
	if e.recorder != nil {
		e.recorder.RecordRestoreWait(d, timedOut)
	}
}

// restoring は復元の完了待ちが必要かどうかを返す。
func restoring(snap session.Snapshot) bool {
	return snap.Loading && snap.Profile == nil
}
