package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dlemaire/chessmate/internal/archive"
	"github.com/dlemaire/chessmate/internal/challenge"
	appcfg "github.com/dlemaire/chessmate/internal/config"
	"github.com/dlemaire/chessmate/internal/game"
	"github.com/dlemaire/chessmate/internal/gateway"
	"github.com/dlemaire/chessmate/internal/match"
	"github.com/dlemaire/chessmate/internal/msgcat"
	"github.com/dlemaire/chessmate/internal/obslog"
	"github.com/dlemaire/chessmate/internal/presenter"
	"github.com/dlemaire/chessmate/internal/render"
	"github.com/dlemaire/chessmate/internal/store"
)

const defaultRedisURL = "redis://localhost:6379/0"

type app struct {
	cfg       *appcfg.AppConfig
	matches   *match.Manager
	formatter *presenter.Formatter
	present   *presenter.Presenter
	renderer  render.BoardRenderer
}

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	redisURL := cfg.RedisURL
	if redisURL == "" {
		redisURL = defaultRedisURL
	}
	opts, err := store.ParseRedisURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("redis ping error: %v", err)
	}
	pingCancel()

	games := store.New(rdb, cfg.GameTTL)
	challenges := challenge.NewManager(rdb, games, cfg.ChallengeTTL)

	var archiver archive.Archiver
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer func() { _ = repo.Close() }()
		archiver = repo
	}

	matches := match.NewManager(games, challenges, archiver, cfg.AIDepth)

	cat, err := msgcat.New(strings.TrimSpace(os.Getenv("MESSAGE_DIR")))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	formatter := presenter.NewFormatter(cat, cfg.BotPrefix)

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.AuthToken != "" {
			h["Authorization"] = "Bearer " + cfg.AuthToken
		}
		return h
	}
	client := gateway.NewClient(cfg.GatewayBaseURL, gateway.WithHeaderProvider(headers))
	present := presenter.NewPresenter(
		func(channelID, message string) error {
			return client.SendMessage(context.Background(), channelID, message)
		},
		func(channelID, imageBase64 string) error {
			return client.SendImage(context.Background(), channelID, imageBase64)
		},
	)

	a := &app{
		cfg:       cfg,
		matches:   matches,
		formatter: formatter,
		present:   present,
		renderer:  render.NewPNGRenderer(),
	}

	ws := gateway.NewWebSocket(cfg.GatewayWSURL, 5)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gateway.WebSocketState) {
		obslog.L().Info("ws_state", zap.String("state", state.String()))
	})
	ws.OnMessage(func(msg *gateway.Message) {
		if msg == nil || strings.TrimSpace(msg.Text) == "" {
			return
		}
		if !cfg.ChannelAllowed(msg.ChannelID) {
			return
		}
		if !strings.HasPrefix(strings.TrimSpace(msg.Text), cfg.BotPrefix) {
			return
		}
		// Keep the read loop free.
		go a.handleCommand(msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		ccancel()
		log.Fatalf("ws connect error: %v", err)
	}
	ccancel()

	cleanupDone := make(chan struct{})
	cleanupStop := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-cleanupStop:
				return
			case <-t.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := matches.CleanupStale(ctx, cfg.StaleMaxIdle); err != nil {
					obslog.L().Warn("cleanup_failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()

	obslog.L().Info("bot_started", zap.String("prefix", cfg.BotPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	close(cleanupStop)
	<-cleanupDone
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = ws.Close(closeCtx)
	closeCancel()
	_ = games.Close()
}

func (a *app) handleCommand(msg *gateway.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), a.cfg.BotPrefix))
	if raw == "" {
		_ = a.present.Text(msg.ChannelID, a.formatter.Help())
		return
	}
	parts := strings.Fields(raw)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		_ = a.present.Text(msg.ChannelID, a.formatter.Help())
	case "challenge":
		a.handleChallenge(ctx, msg, args)
	case "accept":
		a.handleAccept(ctx, msg)
	case "decline":
		a.handleDecline(ctx, msg)
	case "move":
		if len(args) == 0 {
			_ = a.present.Text(msg.ChannelID, a.formatter.Help())
			return
		}
		a.handleMove(ctx, msg, strings.Join(args, ""))
	case "board":
		a.handleBoard(ctx, msg)
	case "resign":
		a.handleResign(ctx, msg)
	case "pgn":
		a.handlePGN(ctx, msg)
	case "suggest":
		a.handleSuggest(ctx, msg)
	case "analyze", "eval":
		a.handleAnalyze(ctx, msg)
	default:
		// Bare move text, e.g. "!e4" or "!Nf3".
		a.handleMove(ctx, msg, raw)
	}
}

func (a *app) handleChallenge(ctx context.Context, msg *gateway.Message, args []string) {
	if len(args) == 0 {
		_ = a.present.Text(msg.ChannelID, a.formatter.Help())
		return
	}
	target := strings.TrimPrefix(strings.TrimSpace(args[0]), "@")
	if strings.EqualFold(target, "ai") || strings.EqualFold(target, "bot") {
		target = game.AIPlayerID
	}

	ch, g, err := a.matches.Challenge(ctx, msg.ChannelID, msg.UserID, target)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	if g != nil {
		a.sendBoard(ctx, msg.ChannelID, g, a.formatter.AIGameStarted(g))
		return
	}
	_ = a.present.Text(msg.ChannelID, a.formatter.ChallengeCreated(ch, a.cfg.ChallengeTTL.String()))
}

func (a *app) handleAccept(ctx context.Context, msg *gateway.Message) {
	g, err := a.matches.AcceptChallenge(ctx, msg.ChannelID, msg.UserID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	a.sendBoard(ctx, msg.ChannelID, g, a.formatter.ChallengeAccepted(g))
}

func (a *app) handleDecline(ctx context.Context, msg *gateway.Message) {
	ch, err := a.matches.DeclineChallenge(ctx, msg.ChannelID, msg.UserID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	_ = a.present.Text(msg.ChannelID, a.formatter.ChallengeDeclined(ch))
}

func (a *app) handleMove(ctx context.Context, msg *gateway.Message, text string) {
	g, out, err := a.matches.ResolveAndApplyMove(ctx, msg.ChannelID, msg.UserID, text)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	a.sendBoard(ctx, msg.ChannelID, g, a.formatter.MovePlayed(msg.UserID, out, g))
}

func (a *app) handleBoard(ctx context.Context, msg *gateway.Message) {
	g, err := a.matches.GetGame(ctx, msg.ChannelID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	a.sendBoard(ctx, msg.ChannelID, g, "")
}

func (a *app) handleResign(ctx context.Context, msg *gateway.Message) {
	g, err := a.matches.Resign(ctx, msg.ChannelID, msg.UserID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	_ = a.present.Text(msg.ChannelID, a.formatter.Resigned(msg.UserID, g))
}

func (a *app) handlePGN(ctx context.Context, msg *gateway.Message) {
	pgn, err := a.matches.PGN(ctx, msg.ChannelID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	_ = a.present.Text(msg.ChannelID, pgn)
}

func (a *app) handleSuggest(ctx context.Context, msg *gateway.Message) {
	g, err := a.matches.GetGame(ctx, msg.ChannelID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	sugs, err := a.matches.Suggest(ctx, msg.ChannelID, a.cfg.SuggestCount)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	_ = a.present.Text(msg.ChannelID, a.formatter.Suggestions(string(g.Turn), sugs))
}

func (a *app) handleAnalyze(ctx context.Context, msg *gateway.Message) {
	ev, err := a.matches.Analyze(ctx, msg.ChannelID)
	if err != nil {
		_ = a.present.Text(msg.ChannelID, a.formatter.Error(err))
		return
	}
	_ = a.present.Text(msg.ChannelID, a.formatter.Evaluation(ev))
}

func (a *app) sendBoard(ctx context.Context, channelID string, g *game.Game, caption string) {
	eng, err := g.Rebuild()
	if err != nil {
		obslog.L().Error("rebuild_failed", zap.String("game_id", g.ID), zap.Error(err))
		_ = a.present.Text(channelID, a.formatter.Error(err))
		return
	}
	opts := render.Options{}
	if hl := highlightFromUCI(g.LastMoveUCI()); hl != nil {
		opts.Highlight = hl
	}
	png, err := a.renderer.RenderPNG(ctx, eng.Position().Board(), opts)
	if err != nil {
		obslog.L().Error("render_failed", zap.String("game_id", g.ID), zap.Error(err))
		_ = a.present.Text(channelID, caption)
		return
	}
	_ = a.present.Board(channelID, caption, png)
}

func highlightFromUCI(uci string) *render.MoveHighlight {
	if len(uci) < 4 {
		return nil
	}
	from, ok1 := squareFromText(uci[0:2])
	to, ok2 := squareFromText(uci[2:4])
	if !ok1 || !ok2 {
		return nil
	}
	return &render.MoveHighlight{From: from, To: to}
}

func squareFromText(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}
