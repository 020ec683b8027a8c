// Package app はCLIのサブコマンドと依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sessiongate/internal/auth"
	"github.com/hitoshi/sessiongate/internal/authapi"
	"github.com/hitoshi/sessiongate/internal/config"
	"github.com/hitoshi/sessiongate/internal/gate"
	"github.com/hitoshi/sessiongate/internal/handler"
	"github.com/hitoshi/sessiongate/internal/logger"
	"github.com/hitoshi/sessiongate/internal/metrics"
	"github.com/hitoshi/sessiongate/internal/middleware"
	"github.com/hitoshi/sessiongate/internal/security"
	"github.com/hitoshi/sessiongate/internal/transport"
	"github.com/hitoshi/sessiongate/internal/view"
)

// maxDemoSteps はデモで辿る遷移の上限。
const maxDemoSteps = 16

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// logOutが指定された場合はログ出力先としてそのwriterを使用する。
func Init(logOut io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(logOut, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefault(logOut, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。表示はout、ログはlogOutに出力する。
func Run(out, logOut io.Writer, args []string) error {
	cmd := ParseCommand(args)

	cfg, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Debug("starting application",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandLogin:
		provider := ""
		if len(args) > 1 {
			provider = args[1]
		}
		return runLogin(out, cfg, provider)
	case CommandLogout:
		return runLogout(ctx, out, cfg)
	case CommandDevServer:
		return runDevServer(ctx, cfg)
	case CommandDemo:
		return runDemo(ctx, out, cfg)
	default:
		return runDashboard(ctx, out, cfg)
	}
}

// clientStack はクライアント側のセッション判定に必要な依存関係をまとめたもの。
type clientStack struct {
	cfg       *config.Config
	transport *transport.Client
	queries   *authapi.Client
	registry  *prometheus.Registry
	collector *metrics.Collector
	sanitizer security.TextSanitizer
}

// newClientStack はトランスポート、認証クエリ、メトリクスを構築する。
// メトリクスはregに登録する。
func newClientStack(cfg *config.Config, reg *prometheus.Registry) (*clientStack, error) {
	collector := metrics.NewCollector(reg)

	tr, err := transport.New(cfg.APIBaseURL, transport.Options{
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		RateLimit:  cfg.RequestRateLimit,
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &clientStack{
		cfg:       cfg,
		transport: tr,
		queries:   authapi.NewClient(tr, slog.Default(), collector),
		registry:  reg,
		collector: collector,
		sanitizer: security.NewTextSanitizer(),
	}, nil
}

// mountDashboard はダッシュボードを1回マウントする。
func (s *clientStack) mountDashboard(nav view.Navigator) *view.Dashboard {
	g := gate.New(s.queries, nav, gate.Config{
		LoginPath: s.cfg.LoginPath,
		Strategy:  gate.Strategy(s.cfg.GateStrategy),
		Logger:    slog.Default(),
		Recorder:  s.collector,
	})
	return view.NewDashboard(g, s.sanitizer)
}

// runDashboard はダッシュボードをマウントし、判定結果と遷移を表示する。
func runDashboard(ctx context.Context, out io.Writer, cfg *config.Config) error {
	stack, err := newClientStack(cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	nav := &view.RecordingNavigator{}
	d := stack.mountDashboard(nav)
	defer d.Unmount()

	d.Mount(ctx)
	if err := d.Render(out); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	for _, p := range nav.Paths() {
		fmt.Fprintf(out, "-> %s\n", p)
	}
	return nil
}

// runLogin はログインビューを表示し、プロバイダーの認可URLへの遷移を出力する。
func runLogin(out io.Writer, cfg *config.Config, provider string) error {
	stack, err := newClientStack(cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	nav := &view.RecordingNavigator{}
	login := view.NewLogin(nav, stack.queries, cfg.LoginProviders)
	fmt.Fprint(out, login.Render())

	if provider == "" {
		if providers := login.Providers(); len(providers) > 0 {
			provider = providers[0]
		}
	}
	if err := login.Select(provider); err != nil {
		return err
	}
	fmt.Fprintf(out, "-> %s\n", nav.Last())
	return nil
}

// runLogout はダッシュボードをマウントしてログアウトを実行する。
// 失敗した場合は注記付きのダッシュボードを表示する。
func runLogout(ctx context.Context, out io.Writer, cfg *config.Config) error {
	stack, err := newClientStack(cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	nav := &view.RecordingNavigator{}
	d := stack.mountDashboard(nav)
	defer d.Unmount()

	logoutErr := d.Logout(ctx)
	if logoutErr != nil {
		fmt.Fprintf(out, "Error: %s\n", gate.LogoutFailedAnnotation)
	}
	for _, p := range nav.Paths() {
		fmt.Fprintf(out, "-> %s\n", p)
	}
	return logoutErr
}

// devServer は起動済みの開発用認証サーバー。
type devServer struct {
	server  *http.Server
	limiter *middleware.RateLimiter
	url     string
}

// newDevServer は開発用認証サーバーを構築する。
func newDevServer(cfg *config.Config, gatherer prometheus.Gatherer) (*devServer, error) {
	if err := cfg.ValidateDevServer(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.DevServer.JWTSecret),
		Expiration: cfg.DevServer.JWTExpiration,
		Issuer:     "sessiongate-dev",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	providers := make(map[string]auth.OAuthProvider, len(cfg.LoginProviders))
	for _, name := range cfg.LoginProviders {
		providers[name] = auth.StaticProvider{Name: name, Email: cfg.DevServer.UserEmail}
	}
	authService := auth.NewService(tokens, providers)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	router := handler.NewRouter(&handler.RouterDeps{
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:  cfg.DevServer.FrontendURL,
			CookieName:   cfg.DevServer.CookieName,
			CookieSecure: cfg.DevServer.CookieSecure(),
		},
		CORSAllowedOrigin: cfg.DevServer.FrontendURL,
		Logger:            slog.Default(),
		SignInLimiter:     limiter,
		Gatherer:          gatherer,
	})

	return &devServer{
		server: &http.Server{
			Addr:         ":" + cfg.DevServer.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		limiter: limiter,
	}, nil
}

// serve はlistenerで待ち受けを開始する。
func (d *devServer) serve(ln net.Listener) {
	d.url = "http://" + ln.Addr().String()
	go func() {
		slog.Info("dev server starting", slog.String("addr", ln.Addr().String()))
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()
}

// shutdown はグレースフルシャットダウンを行う。
func (d *devServer) shutdown() error {
	defer d.limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("dev server stopped gracefully")
	return nil
}

// runDevServer は開発用認証サーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runDevServer(ctx context.Context, cfg *config.Config) error {
	srv, err := newDevServer(cfg, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.server.Addr, err)
	}
	srv.serve(ln)

	<-ctx.Done()
	slog.Info("shutting down dev server...")
	return srv.shutdown()
}

// runDemo は組み込みの開発用サーバーに対して、
// ルート → ダッシュボード → ログイン → プロバイダー → ダッシュボード → ログアウト → ダッシュボード
// の順に遷移し、各段階を表示する。
func runDemo(ctx context.Context, out io.Writer, base *config.Config) error {
	cfg := *base
	if len(cfg.DevServer.JWTSecret) == 0 {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.DevServer.JWTSecret = secret
	}
	if len(cfg.LoginProviders) == 0 {
		return errors.New("no login providers configured")
	}

	reg := prometheus.NewRegistry()
	srv, err := newDevServer(&cfg, reg)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	srv.serve(ln)
	defer srv.shutdown()

	cfg.APIBaseURL = srv.url
	stack, err := newClientStack(&cfg, reg)
	if err != nil {
		return err
	}

	return runDemoFlow(ctx, out, stack, cfg.DevServer.FrontendURL)
}

// runDemoFlow はBrowserの現在位置に応じてビューを切り替え、遷移を最後まで辿る。
func runDemoFlow(ctx context.Context, out io.Writer, stack *clientStack, frontendURL string) error {
	cfg := stack.cfg
	browser := NewBrowser(out, stack.transport.HTTPClient(), stack.transport.BaseURL(), frontendURL)
	root := view.NewRoot(browser, cfg.DashboardPath)
	login := view.NewLogin(browser, stack.queries, cfg.LoginProviders)

	var signedIn, loggedOut, verified bool

	browser.GoTo("/")
	for step := 0; step < maxDemoSteps; step++ {
		if err := browser.Err(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		current := browser.Current()
		switch current {
		case "/":
			root.Enter()

		case cfg.LoginPath:
			fmt.Fprint(out, login.Render())
			switch {
			case !signedIn:
				signedIn = true
				if err := login.Select(login.Providers()[0]); err != nil {
					return err
				}
			case loggedOut && !verified:
				verified = true
				browser.GoTo(cfg.DashboardPath)
			default:
				return nil
			}

		case cfg.DashboardPath:
			d := stack.mountDashboard(browser)
			s := d.Mount(ctx)
			if err := d.Render(out); err != nil {
				d.Unmount()
				return fmt.Errorf("failed to render dashboard: %w", err)
			}
			if s.Authenticated() && !loggedOut {
				fmt.Fprintln(out, "POST /logout")
				if err := d.Logout(ctx); err != nil {
					_ = d.Render(out)
					d.Unmount()
					return err
				}
				loggedOut = true
			}
			d.Unmount()

		default:
			return fmt.Errorf("unexpected location: %s", current)
		}

		if browser.Current() == current {
			return fmt.Errorf("navigation stalled at %s", current)
		}
	}
	return fmt.Errorf("demo did not finish within %d steps", maxDemoSteps)
}

// randomSecret はデモ用の署名鍵を生成する。
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Main はos.Argsを使ってRunを実行し、終了コードを返す。
func Main() int {
	if err := Run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
