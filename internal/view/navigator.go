// Package view はルート・ログイン・ダッシュボードの各ビューを提供する。
// ビューは画面遷移をNavigatorに委ね、表示はプレーンテキストで行う。
package view

import "sync"

// Navigator は画面遷移の機能を表す。
// pathはアプリ内のパス、またはサーバーオリジン上の絶対URL。
type Navigator interface {
	GoTo(path string)
}

// RecordingNavigator は遷移先を記録するNavigator。
type RecordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

// GoTo は遷移先を記録する。
func (n *RecordingNavigator) GoTo(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// Paths は記録された遷移先を古い順に返す。
func (n *RecordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// Last は最後の遷移先を返す。遷移が無い場合は空文字列。
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}
