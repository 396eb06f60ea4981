package router

import (
	"time"

	tg "supportbot/core/telegram"
	"supportbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes builds handlers routing plain text updates. Messages matching a
// registered command go to that command; everything else goes to the registry
// text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "inbound_text", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnMedia,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler)),
		},
	}
}
