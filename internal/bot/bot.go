// Package bot assembles the support bot: command handlers, the inbound
// message route, the admin relay and the background scheduler.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	coreconfig "supportbot/core/config"
	"supportbot/core/logger"
	tg "supportbot/core/telegram"
	"supportbot/core/telegram/callbacks"
	"supportbot/core/telegram/commands"
	tghelpers "supportbot/core/telegram/helpers"
	"supportbot/core/telegram/keyboard"
	"supportbot/core/telegram/router"
	"supportbot/internal/faq"
	"supportbot/internal/session"
	"supportbot/internal/triage"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// App wires all support bot components together.
type App struct {
	cfg     *coreconfig.Config
	entries []faq.Entry

	store   *session.Store
	matcher *faq.Matcher
	svc     *triage.Service

	schedCancel context.CancelFunc
}

// New builds the application from configuration and a loaded knowledge
// base.
func New(cfg *coreconfig.Config, entries []faq.Entry) *App {
	return &App{
		cfg:     cfg,
		entries: entries,
		store:   session.NewStore(),
		matcher: faq.NewMatcher(entries, cfg.Support.MatchThreshold),
	}
}

// CoreConfig exposes the embedded core configuration.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// TelegramRunOptions builds the runtime options for the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.registerCommands(reg)
	if err := reg.RegisterCallback("faq", a.handleFAQCallback); err != nil {
		return tg.RunOptions{}, err
	}
	reg.SetTextFallback(a.handleInboundText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	transport := newTelegramTransport(rt.Bot, a.cfg.Telegram.AdminID)
	a.svc = triage.NewService(a.store, a.matcher, transport, triage.Texts{
		Welcome:  a.cfg.Support.WelcomeMessage,
		Fallback: a.cfg.Support.FallbackMessage,
	})

	sched := triage.NewScheduler(a.store, transport, triage.SchedulerOptions{
		Interval:       time.Duration(a.cfg.Support.SweepIntervalSeconds) * time.Second,
		RemindAfter:    time.Duration(a.cfg.Support.RemindAfterSeconds) * time.Second,
		CloseAfter:     time.Duration(a.cfg.Support.AutoCloseAfterSeconds) * time.Second,
		IdleEvictAfter: time.Duration(a.cfg.Support.IdleEvictAfterSeconds) * time.Second,
	})
	schedCtx, cancel := context.WithCancel(context.Background())
	a.schedCancel = cancel
	go sched.Run(schedCtx)

	logger.Triage.LogAttrs(ctx, slog.LevelInfo, "app.ready",
		slog.Int("faq_entries", len(a.entries)),
		slog.Int64("admin_id", a.cfg.Telegram.AdminID),
	)
	return nil
}

func (a *App) onStop(context.Context, tg.Runtime) error {
	if a.schedCancel != nil {
		a.schedCancel()
	}
	return nil
}

func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Description: "🚀 Start support session",
		Handler:     a.handleStart,
	})
	reg.RegisterCommand("/faq", commands.Command{
		Description: "📋 View frequently asked questions",
		Handler:     a.handleFAQ,
	})
	reg.RegisterCommand("/chat", commands.Command{
		Description: "👤 Start human support (admin only)",
		AdminOnly:   true,
		Handler:     a.handleChat,
	})
	reg.RegisterCommand("/stopchat", commands.Command{
		Description: "🔕 Stop human support (admin only)",
		AdminOnly:   true,
		Handler:     a.handleStopChat,
	})
	reg.RegisterCommand("/reply", commands.Command{
		Description: "✉️ Reply to a single user (admin only)",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleReply,
	})
	reg.RegisterCommand("/ping", commands.Command{
		Description: "🏓 Check that the bot is alive",
		Hidden:      true,
		Handler:     a.handlePing,
	})
}

func (a *App) handleStart(c tele.Context) error {
	a.store.MarkSeen(c.Sender().ID, time.Now())
	return tghelpers.SendText(c, a.cfg.Support.WelcomeMessage)
}

func (a *App) handleFAQ(c tele.Context) error {
	var b strings.Builder
	b.WriteString("Here are the common FAQs you can ask about:\n")
	btns := make([]keyboard.InlineBtn, 0, len(a.entries))
	for i, e := range a.entries {
		fmt.Fprintf(&b, "\n• %s", e.Question)
		btns = append(btns, keyboard.InlineBtn{
			Text:   e.Question,
			Unique: "faq",
			Data:   strconv.Itoa(i),
		})
	}
	return tghelpers.SendMD(c, b.String(), keyboard.InlineButtons(btns))
}

func (a *App) handleFAQCallback(c tele.Context) error {
	idx, err := callbacks.PayloadInt(c)
	if err != nil || idx < 0 || idx >= len(a.entries) {
		return tghelpers.SendText(c, "That question is no longer available, use /faq for the current list.")
	}
	return tghelpers.SendMD(c, a.entries[idx].Answer)
}

func (a *App) handleChat(c tele.Context) error {
	userID, err := parseUserIDArg(c.Args())
	if err != nil {
		_ = tghelpers.SendText(c, "Usage: /chat <user_id>")
		return &triage.MalformedArgsError{Command: "/chat", Usage: "/chat <user_id>"}
	}
	a.svc.StartChat(userID, time.Now())
	return tghelpers.SendText(c, fmt.Sprintf("Chat started with user %d. Use /stopchat %d to end it.", userID, userID))
}

func (a *App) handleStopChat(c tele.Context) error {
	userID, err := parseUserIDArg(c.Args())
	if err != nil {
		_ = tghelpers.SendText(c, "Usage: /stopchat <user_id>")
		return &triage.MalformedArgsError{Command: "/stopchat", Usage: "/stopchat <user_id>"}
	}
	a.svc.StopChat(userID)
	return tghelpers.SendText(c, fmt.Sprintf("Chat ended with user %d.", userID))
}

func (a *App) handleReply(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		_ = tghelpers.SendText(c, "Usage: /reply <user_id> <message>")
		return &triage.MalformedArgsError{Command: "/reply", Usage: "/reply <user_id> <message>"}
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		_ = tghelpers.SendText(c, "Usage: /reply <user_id> <message>")
		return &triage.MalformedArgsError{Command: "/reply", Usage: "/reply <user_id> <message>"}
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.svc.ReplyTo(ctx, userID, strings.Join(args[1:], " ")); err != nil {
		_ = tghelpers.SendText(c, fmt.Sprintf("Could not reach user %d.", userID))
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf("Reply sent to user %d.", userID))
}

func (a *App) handlePing(c tele.Context) error {
	return tghelpers.SendText(c, "✅ Bot is alive and responding.")
}

// handleInboundText is the fallback for every non-command text update.
// Messages in the admin channel are relayed to live users, everything
// else goes through triage.
func (a *App) handleInboundText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text := c.Text()

	if c.Chat() != nil && c.Chat().ID == a.cfg.Telegram.AdminID {
		_, err := a.svc.HandleAdminMessage(ctx, text)
		return err
	}

	sender := c.Sender()
	if sender == nil {
		return nil
	}
	display := sender.Username
	if display == "" {
		display = strconv.FormatInt(sender.ID, 10)
	}
	_, err := a.svc.HandleUserMessage(ctx, sender.ID, display, text, time.Now())
	return err
}

func parseUserIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one argument")
	}
	return strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
}
