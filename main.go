package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"pongview/admin"
	"pongview/config"
	"pongview/input"
	"pongview/logging"
	"pongview/particle"
	"pongview/render"
	"pongview/render/raster"
	"pongview/render/term"
	"pongview/session"
	"pongview/sfx"
	"pongview/wsclient"
)

type flags struct {
	config   string
	addr     string
	admin    string
	log      string
	headless bool
	size     string
}

// pongview 入口：连接对战服务器，在终端（或内存画布）中渲染比赛
func main() {
	var f flags
	flag.StringVar(&f.config, "config", "pongview.toml", "config file (TOML); defaults are used when missing")
	flag.StringVar(&f.addr, "addr", "", "game server websocket URL, e.g. ws://localhost:8080/ws/game")
	flag.StringVar(&f.admin, "admin", "", "admin HTTP listen address, e.g. :9090 (empty disables)")
	flag.StringVar(&f.log, "log", "", "log file path")
	flag.BoolVar(&f.headless, "headless", false, "render into an in-memory image instead of the terminal")
	flag.StringVar(&f.size, "size", "800x600", "headless canvas size, WxH")
	flag.Parse()

	cfg, err := config.Load(f.config)
	if err == nil {
		err = applyFlags(&cfg, f)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pongview: %v\n", err)
		os.Exit(2)
	}

	// 终端被画面占用，日志只写文件
	if err := logging.InitLogger(cfg.Log.File, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "pongview: %v\n", err)
		os.Exit(2)
	}
	defer logging.SyncLogger()

	if err := run(cfg, f); err != nil {
		logging.Log.Errorf("exit: %v", err)
		logging.SyncLogger()
		fmt.Fprintf(os.Stderr, "pongview: %v\n", err)
		os.Exit(1)
	}
	logging.Log.Info("bye")
}

func applyFlags(cfg *config.Config, f flags) error {
	if f.addr != "" {
		cfg.ServerURL = f.addr
	}
	if f.admin != "" {
		cfg.Admin.Addr = f.admin
	}
	if f.log != "" {
		cfg.Log.File = f.log
	}
	return cfg.Validate()
}

func run(cfg config.Config, f flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pal, err := palette(cfg.Colors)
	if err != nil {
		return err
	}

	var (
		surface render.Surface
		screen  tcell.Screen
		tsurf   *term.Surface
		frames  admin.FrameSource
	)
	if f.headless {
		var w, h int
		if _, err := fmt.Sscanf(f.size, "%dx%d", &w, &h); err != nil {
			return fmt.Errorf("size %q: %w", f.size, err)
		}
		rs, err := raster.New(w, h)
		if err != nil {
			return err
		}
		surface, frames = rs, rs
	} else {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()
		screen.HideCursor()
		tsurf = term.New(screen)
		surface = tsurf
	}

	engine := particle.NewEngine(particle.DefaultParams(), uint64(time.Now().UnixNano()))
	renderer := render.New(surface, render.Options{
		FieldWidth:  cfg.Field.Width,
		FieldHeight: cfg.Field.Height,
		Palette:     pal,
		Effects: render.Effects{
			Trail:       cfg.Effects.Trail,
			Glow:        cfg.Effects.Glow,
			Particles:   cfg.Effects.Particles,
			TrailLength: cfg.Effects.TrailLength,
			TrailCount:  cfg.Effects.TrailCount,
		},
	}, engine)

	netMetrics := &wsclient.Metrics{}
	mgr := wsclient.New(wsclient.Config{
		URL:                  cfg.DialURL(),
		ReconnectDelay:       cfg.Network.ReconnectDelay,
		MaxReconnectAttempts: cfg.Network.MaxReconnectAttempts,
		ConnectTimeout:       cfg.Network.ConnectTimeout,
		ReadTimeout:          cfg.Network.ReadTimeout,
		PingPeriod:           cfg.Network.PingPeriod,
		SendQueue:            cfg.Network.SendQueue,
		Greeting:             "Client connected",
	}, wsclient.WithMetrics(netMetrics))

	sound := sfx.New(cfg.Effects.Sound)
	defer sound.Close()

	ctl := session.New(mgr, renderer, session.Options{
		FrameInterval:   cfg.FrameInterval(),
		BurstCount:      cfg.Effects.BurstCount,
		ScoreBurstCount: cfg.Effects.ScoreBurstCount,
		HoldWindow:      cfg.Input.HoldWindow,
		Sound:           sound,
	})

	logging.Log.Infof("pongview starting: server=%s player=%s headless=%v fps=%d",
		cfg.ServerURL, cfg.PlayerID, f.headless, cfg.FPS)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// 按下退出键时 Run 返回，同时结束其他任务
		defer cancel()
		return ctl.Run(gctx)
	})

	if screen != nil {
		// PollEvent 在 Fini 之后返回 nil，goroutine 随之退出
		go pollTerminal(gctx, screen, tsurf, ctl)
	}

	if cfg.Admin.Addr != "" {
		h := admin.NewHandler(ctl, map[string]admin.MetricsSource{
			"session":    admin.MetricsFunc(ctl.Stats),
			"connection": netMetrics,
		}, frames)
		srv := &http.Server{Addr: cfg.Admin.Addr, Handler: h.Routes(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logging.Log.Infof("admin listening on %s", cfg.Admin.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logging.Log.Info("shutting down...")
	return err
}

// pollTerminal 把终端事件转交给会话
func pollTerminal(ctx context.Context, screen tcell.Screen, surface *term.Surface, ctl *session.Controller) {
	for {
		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventKey:
			if k := input.FromTcell(ev); k != input.KeyNone {
				ctl.Press(k, ev.When())
			}
		case *tcell.EventResize:
			screen.Sync()
			_ = ctl.Do(ctx, surface.Sync)
		}
	}
}

func palette(c config.Colors) (render.Palette, error) {
	pal := render.Palette{
		Online:  color.NRGBA{G: 255, A: 255},
		Offline: color.NRGBA{R: 255, A: 255},
	}
	for _, p := range []struct {
		hex string
		dst *color.NRGBA
	}{
		{c.Background, &pal.Background},
		{c.Foreground, &pal.Foreground},
		{c.Player1, &pal.Player1},
		{c.Player2, &pal.Player2},
		{c.Ball, &pal.Ball},
		{c.UI, &pal.UI},
	} {
		v, err := config.ParseColor(p.hex)
		if err != nil {
			return pal, fmt.Errorf("color %q: %w", p.hex, err)
		}
		*p.dst = v
	}
	return pal, nil
}
