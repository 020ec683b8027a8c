// Package gate はダッシュボード表示の前提となるセッション判定（セッションゲート）を提供する。
//
// ゲートはビューのマウント1回につき1つ生成し、Enterで一度だけ判定を行う。
// 公開リソースの取得結果は認証判定に影響せず、現在のユーザーの取得に失敗した場合は
// 理由を問わず未認証として扱いログイン画面へ遷移する（フェイルクローズ）。
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/sessiongate/internal/metrics"
	"github.com/hitoshi/sessiongate/internal/model"
)

// ErrClosed はアンマウント済みのゲートに操作した場合に返される。
var ErrClosed = errors.New("gate is closed")

// Strategy は公開クエリと認証クエリの発行方法。
type Strategy string

const (
	// Sequential は公開クエリの完了後に認証クエリを発行する。
	Sequential Strategy = "sequential"
	// Concurrent は両クエリを同時に発行し、それぞれ独立に扱う。
	Concurrent Strategy = "concurrent"
)

// Queries はゲートが必要とする認証クエリのインターフェース。
type Queries interface {
	FetchCurrentUser(ctx context.Context) (*model.UserIdentity, error)
	FetchPublicResource(ctx context.Context) (*model.PublicResource, error)
	Logout(ctx context.Context) error
}

// Navigator は画面遷移の機能を表す。
type Navigator interface {
	GoTo(path string)
}

// Config はゲートの設定。
type Config struct {
	LoginPath string
	Strategy  Strategy
	Logger    *slog.Logger
	Recorder  metrics.Recorder
}

// Gate は1回のビューマウントに対応するセッションゲート。
type Gate struct {
	queries   Queries
	navigator Navigator
	config    Config
	id        string
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	entered     bool
	closed      bool
	cancel      context.CancelFunc
	subscribers map[int]func(State)
	nextSubID   int
}

// New はGateを生成する。初期状態はPhaseLoading。
func New(queries Queries, navigator Navigator, config Config) *Gate {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	if config.Strategy == "" {
		config.Strategy = Sequential
	}
	if config.Recorder == nil {
		config.Recorder = metrics.Noop{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()
	return &Gate{
		queries:     queries,
		navigator:   navigator,
		config:      config,
		id:          id,
		logger:      logger.With(slog.String("mount_id", id)),
		state:       State{Phase: PhaseLoading},
		subscribers: make(map[int]func(State)),
	}
}

// ID はマウントIDを返す。
func (g *Gate) ID() string {
	return g.id
}

// State は現在の状態のスナップショットを返す。
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe は状態変化の通知先を登録し、登録解除関数を返す。
func (g *Gate) Subscribe(fn func(State)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	g.subscribers[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subscribers, id)
		g.mu.Unlock()
	}
}

// Enter はゲートの判定を実行し、確定した状態を返す。
// マウントごとに一度だけ実行され、2回目以降は現在の状態をそのまま返す。
// 判定中にCloseされた場合、結果は反映されず遷移も行わない。
func (g *Gate) Enter(ctx context.Context) State {
	g.mu.Lock()
	if g.entered || g.closed {
		s := g.state
		g.mu.Unlock()
		return s
	}
	g.entered = true
	mountCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()
	defer cancel()

	// 1. Loading
	g.apply(func(s *State) { *s = State{Phase: PhaseLoading} })

	// 2-3. 公開クエリと認証クエリ
	r := g.runQueries(mountCtx)

	if r.publicErr != nil {
		g.logger.Warn("public resource unavailable",
			slog.String("error", r.publicErr.Error()),
		)
	}

	// 4. 判定結果の反映（Loadingはどの分岐でも解除される）
	if r.userErr != nil {
		applied := g.apply(func(s *State) {
			*s = State{
				Phase:     PhaseUnauthenticated,
				Public:    r.public,
				PublicErr: r.publicErr,
				Reason:    r.userErr,
			}
		})
		if !applied {
			g.logger.Debug("gate closed before result was applied")
			return g.State()
		}
		g.logger.Info("session is not authenticated",
			slog.String("reason", r.userErr.Error()),
		)
		g.config.Recorder.RecordGateOutcome(string(PhaseUnauthenticated))
		if !g.goTo(g.config.LoginPath) {
			g.logger.Debug("gate closed before navigation")
		}
		return g.State()
	}

	applied := g.apply(func(s *State) {
		*s = State{
			Phase:     PhaseAuthenticated,
			User:      r.user,
			Public:    r.public,
			PublicErr: r.publicErr,
		}
	})
	if !applied {
		g.logger.Debug("gate closed before result was applied")
		return g.State()
	}
	g.logger.Info("session is authenticated")
	g.config.Recorder.RecordGateOutcome(string(PhaseAuthenticated))
	return g.State()
}

// Logout はログアウトを実行する。
// 成功時はログイン画面へ遷移する。失敗時は画面に留まり注記を設定するが、
// セッションの再検証は行わずPhaseは変更しない。
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := g.queries.Logout(ctx); err != nil {
		g.logger.Warn("logout failed", slog.String("error", err.Error()))
		g.apply(func(s *State) { s.Annotation = LogoutFailedAnnotation })
		return err
	}

	// 以前の失敗による注記は成功時に解除する。
	g.apply(func(s *State) { s.Annotation = "" })
	g.goTo(g.config.LoginPath)
	return nil
}

// Close はゲートをアンマウントする。
// 実行中のクエリはキャンセルされ、以降の結果は反映されない。
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	if g.cancel != nil {
		g.cancel()
	}
	g.subscribers = make(map[int]func(State))
}

// queryResult は公開クエリと認証クエリの結果をまとめたもの。
type queryResult struct {
	public    *model.PublicResource
	publicErr error
	user      *model.UserIdentity
	userErr   error
}

// runQueries は設定されたストラテジーで公開クエリと認証クエリを発行する。
func (g *Gate) runQueries(ctx context.Context) queryResult {
	var r queryResult

	if g.config.Strategy == Concurrent {
		var eg errgroup.Group
		eg.Go(func() error {
			r.public, r.publicErr = g.queries.FetchPublicResource(ctx)
			return nil
		})
		eg.Go(func() error {
			r.user, r.userErr = g.queries.FetchCurrentUser(ctx)
			return nil
		})
		_ = eg.Wait()
	} else {
		r.public, r.publicErr = g.queries.FetchPublicResource(ctx)
		r.user, r.userErr = g.queries.FetchCurrentUser(ctx)
	}

	if r.publicErr != nil {
		r.public = nil
	}
	if r.userErr == nil && !r.user.HasIdentifier() {
		r.userErr = model.NewUnauthenticatedError(0, errors.New("user identity has no identifying field"))
	}
	if r.userErr != nil {
		r.user = nil
	}
	return r
}

// apply はアンマウントされていなければ状態を更新して購読者へ通知する。
// 更新した場合にtrueを返す。
func (g *Gate) apply(update func(*State)) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	update(&g.state)
	s := g.state
	subs := make([]func(State), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return true
}

// goTo はアンマウントされていなければ遷移し、遷移した場合にtrueを返す。
// Closeと競合しないようロックを保持したままNavigatorを呼ぶため、
// NavigatorからGateのメソッドを呼んではならない。
func (g *Gate) goTo(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.config.Recorder.RecordNavigation(path)
	g.navigator.GoTo(path)
	return true
}
