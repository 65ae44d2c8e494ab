package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/donation-bot/internal/errors"
	"github.com/Proton-105/donation-bot/internal/idempotency"
	"github.com/Proton-105/donation-bot/internal/lock"
	"github.com/Proton-105/donation-bot/internal/middleware"
	"github.com/Proton-105/donation-bot/internal/ratelimit"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/pkg/config"
)

// Deps are the collaborators of the bot besides the handler services.
type Deps struct {
	handlers.Deps

	FSM            state.StateMachine
	Locker         lock.Locker
	Idempotency    *idempotency.Guard
	IdempotencyTTL time.Duration
	// Limiter and Rules enable rate limiting when both are set.
	Limiter ratelimit.Limiter
	Rules   *ratelimit.Rules
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot     *telebot.Bot
	log         *slog.Logger
	cfg         config.Config
	deps        Deps
	rateLimitMw *middleware.RateLimitMiddleware
	router      *Router
	dispatcher  *Dispatcher
	handlers    *handlers.Set
	errHandler  *errors.Handler
}

// NewTelebot creates the Telegram client in polling or webhook mode.
func NewTelebot(cfg config.BotConfig, log *slog.Logger) (*telebot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telegram update failed", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Webhook.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Webhook.PublicURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}
	return tb, nil
}

// New builds a telegram bot instance configured according to the application settings.
func New(tb *telebot.Bot, cfg config.Config, log *slog.Logger, deps Deps) *Bot {
	if log == nil {
		log = slog.Default()
	}

	deps.Log = log
	if deps.HistoryLimit == 0 {
		deps.HistoryLimit = cfg.Bot.HistoryLimit
	}
	if deps.Keyboards == nil {
		deps.Keyboards = keyboard.NewBuilder(deps.Catalog, log)
	}
	if deps.BotUsername == "" && tb != nil && tb.Me != nil {
		deps.BotUsername = tb.Me.Username
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		deps:       deps,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		handlers:   handlers.NewSet(deps.Deps),
		errHandler: errors.NewHandler(log, cfg.Sentry.Enabled),
	}

	if deps.Limiter != nil && deps.Rules != nil {
		b.rateLimitMw = middleware.NewRateLimitMiddleware(deps.Limiter, deps.Rules, b.onRateLimited, log)
	}

	b.setupRouter()
	b.registerTelebotHandlers()

	return b
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) setupRouter() {
	h := b.handlers

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, b.deps.IdempotencyTTL, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log, b.cfg.Bot.HandlerTimeout))
	b.router.Use(SerializeMiddleware(b.deps.Locker, b.log))
	b.router.Use(AuthMiddleware(b.deps.Users, b.deps.Catalog, b.log))
	b.router.Use(middleware.Metrics)

	b.router.RegisterCommand(CommandStart, h.Start)
	b.router.RegisterCommand(CommandDonate, h.Donate)
	b.router.RegisterCommand(CommandCancel, h.Cancel)
	b.router.RegisterCommand(CommandProfile, h.Profile)
	b.router.RegisterCommand(CommandHistory, h.History)
	b.router.RegisterCommand(CommandSupport, h.Support)
	b.router.RegisterCommand(CommandLanguage, h.Language)
	b.router.RegisterCommand(CommandAdmin, h.AdminOnly(h.Panel))
	b.router.RegisterCommand(CommandStats, h.AdminOnly(h.Stats))
	b.router.RegisterCommand(CommandSetCard, h.AdminOnly(h.SetCard))

	catalog := b.deps.Catalog
	b.router.RegisterText(h.Donate, catalog.AllValues(keyboard.MenuDonate)...)
	b.router.RegisterText(h.History, catalog.AllValues(keyboard.MenuHistory)...)
	b.router.RegisterText(h.Profile, catalog.AllValues(keyboard.MenuProfile)...)
	b.router.RegisterText(h.Support, catalog.AllValues(keyboard.MenuSupport)...)
	b.router.RegisterText(h.AdminOnly(h.Panel), catalog.AllValues(keyboard.MenuAdmin)...)

	b.router.RegisterCallback(keyboard.CbLang, h.ChooseLanguage)
	b.router.RegisterCallback(keyboard.CbDonateTo, h.DonateTo)
	b.router.RegisterCallback(keyboard.CbCurrency, h.SelectCurrency)
	b.router.RegisterCallback(keyboard.CbCancel, h.Cancel)
	b.router.RegisterCallback(keyboard.CbApprove, h.Approve)
	b.router.RegisterCallback(keyboard.CbReject, h.Reject)

	adminCallbacks := map[string]handlers.Handler{
		keyboard.CbAdminPanel:          h.Panel,
		keyboard.CbAdminStats:          h.Stats,
		keyboard.CbAdminSetCard:        h.SetCard,
		keyboard.CbAdminCards:          h.Cards,
		keyboard.CbAdminCurrencies:     h.Currencies,
		keyboard.CbAdminSupport:        h.EditSupport,
		keyboard.CbAdminCardCurrency:   h.CardCurrency,
		keyboard.CbConfirmSetCard:      h.ConfirmCard,
		keyboard.CbCancelSetCard:       h.CancelCard,
		keyboard.CbCardToggle:          h.ToggleCard,
		keyboard.CbCardDelete:          h.DeleteCard,
		keyboard.CbAdminToggleCurrency: h.ToggleCurrency,
		keyboard.CbConfirmSupport:      h.ConfirmSupport,
		keyboard.CbCancelSupport:       h.CancelSupport,
	}
	for prefix, handler := range adminCallbacks {
		b.router.RegisterCallback(prefix, handlers.CallbackHandler(h.AdminOnly(handler)))
	}

	b.dispatcher.HandleStates(h.Language, state.StateChoosingLanguage)
	b.dispatcher.HandleStates(h.EnterAmount, state.StateAwaitingAmount)
	b.dispatcher.HandleStates(h.SubmitProof, state.StateAwaitingProof)
	b.dispatcher.HandleStates(h.AdminOnly(h.CardDetails), state.StateAdminCardDetails)
	b.dispatcher.HandleStates(h.AdminOnly(h.SupportText), state.StateAdminSupportText)

	b.router.SetDefault(h.Fallback)
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnPhoto, b.router.Route)
	b.telebot.Handle(telebot.OnDocument, b.router.Route)
}

// onRateLimited runs before the router middleware, so the sender's Telegram
// language stands in for the stored one. Throttled callbacks are already answered.
func (b *Bot) onRateLimited(c telebot.Context) error {
	if c.Callback() != nil {
		return nil
	}

	lang := ""
	if c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return c.Send(b.deps.Catalog.Translator(lang).T(errors.MsgRateLimited))
}
