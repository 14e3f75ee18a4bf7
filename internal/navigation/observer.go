package navigation

import (
	"context"
	"log/slog"

	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/route"
	"github.com/hitoshi/bakery/internal/session"
)

// Verdict はナビゲーション監視の判定結果。
type Verdict string

const (
	// VerdictRecorded は遷移先を記録した。
	VerdictRecorded Verdict = "recorded"
	// VerdictForcedLogout はロールをまたぐ戻る操作を検知し、強制ログアウトした。
	VerdictForcedLogout Verdict = "forced_logout"
	// VerdictIgnored はガード対象外のパスのため何もしなかった。
	VerdictIgnored Verdict = "ignored"
)

// Revoker は強制ログアウト時にサーバー側のセッションを失効させる。
type Revoker interface {
	Logout(ctx context.Context, sessionID string) error
}

// Recorder は強制ログアウトのメトリクス記録インターフェース。
type Recorder interface {
	RecordForcedLogout(from, to string)
}

// Observer は遷移完了ごとに直前の遷移先と比較し、
// 管理者ページからユーザーページへの戻る操作を検知して強制ログアウトする。
// ガード評価の後段の安全網であり、アクセス制御の本体ではない。
type Observer struct {
	policies guard.PolicySource
	revoker  Revoker
	recorder Recorder
	logger   *slog.Logger
}

// NewObserver はObserverを生成する。revokerとrecorderはnilでもよい。
func NewObserver(policies guard.PolicySource, revoker Revoker, recorder Recorder, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		policies: policies,
		revoker:  revoker,
		recorder: recorder,
		logger:   logger,
	}
}

// Completed は遷移の完了を通知する。遷移が確定した後にのみ呼び出すこと。
func (o *Observer) Completed(ctx context.Context, store *session.Store, rec *Record, path string) Verdict {
	policy := o.policies.Current()
	cur := route.Normalize(path)
	curClass := policy.Routes.Classify(cur)
	if curClass == route.Unclassified {
		return VerdictIgnored
	}

	snap := store.Snapshot()
	prev, violated := rec.advance(cur, func(prev string) bool {
		if !snap.LoggedIn() || prev == "" {
			return false
		}
		return crossesRole(policy.BackNavigation, policy.Routes.Classify(prev), curClass)
	})
	if !violated {
		return VerdictRecorded
	}

	o.logger.Warn("cross-role back navigation detected, forcing logout",
		slog.String("user_id", snap.Profile.ID),
		slog.String("from", prev),
		slog.String("to", cur),
	)
	// ClearSessionのフックでRecordも消去される
	store.ClearSession()

	if o.revoker != nil && snap.SessionID != "" {
		if err := o.revoker.Logout(ctx, snap.SessionID); err != nil {
			o.logger.Error("failed to revoke session after forced logout",
				slog.String("user_id", snap.Profile.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if o.recorder != nil {
		o.recorder.RecordForcedLogout(policy.Routes.Classify(prev).String(), curClass.String())
	}
	return VerdictForcedLogout
}

// crossesRole はprevからcurへの遷移がロールをまたぐ戻る操作かどうかを返す。
func crossesRole(check guard.BackNavigationCheck, prev, cur route.Class) bool {
	switch check {
	case guard.BackNavigationAdminToUser:
		return prev == route.AdminOnly && cur != route.AdminOnly && cur != route.Public
	case guard.BackNavigationBoth:
		if prev == route.AdminOnly && cur != route.AdminOnly && cur != route.Public {
			return true
		}
		return prev == route.UserOnly && cur == route.AdminOnly
	default:
		return false
	}
}
