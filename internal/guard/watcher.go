package guard

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultReloadDebounce はエディタの連続書き込みをまとめる待ち時間。
const defaultReloadDebounce = 200 * time.Millisecond

// PolicyWatcher はポリシーファイルの変更を監視し、Providerのポリシーを差し替える。
// 読み込みや検証に失敗した場合は現在のポリシーを維持する。
type PolicyWatcher struct {
	path     string
	base     *Policy
	provider *Provider
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	// onReload はテスト用のフック。再読み込みの成否を通知する。
	onReload func(err error)
}

// NewPolicyWatcher はPolicyWatcherを生成する。
// ファイルの置き換え（rename）にも追従するため、ディレクトリ単位で監視する。
func NewPolicyWatcher(path string, base *Policy, provider *Provider, logger *slog.Logger) (*PolicyWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve policy path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch policy dir: %w", err)
	}
	return &PolicyWatcher{
		path:     abs,
		base:     base,
		provider: provider,
		watcher:  w,
		debounce: defaultReloadDebounce,
		logger:   logger,
	}, nil
}

// Run はctxがキャンセルされるまで変更を監視する。終了時にwatcherをクローズする。
func (pw *PolicyWatcher) Run(ctx context.Context) {
	defer pw.watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(pw.debounce)
			} else {
				timer.Reset(pw.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			pw.reload()

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Error("policy watcher error", slog.String("error", err.Error()))
		}
	}
}

func (pw *PolicyWatcher) reload() {
	p, err := LoadPolicyFile(pw.path, pw.base)
	if err != nil {
		pw.logger.Error("failed to reload navigation policy, keeping current",
			slog.String("path", pw.path),
			slog.String("error", err.Error()),
		)
	} else {
		pw.provider.Replace(p)
		pw.logger.Info("navigation policy reloaded",
			slog.String("path", pw.path),
			slog.Int("routes", len(p.Routes)),
			slog.String("admin_on_user_route", string(p.AdminOnUserRoute)),
			slog.String("back_navigation_logout", string(p.BackNavigation)),
		)
	}
	if pw.onReload != nil {
		pw.onReload(err)
	}
}
