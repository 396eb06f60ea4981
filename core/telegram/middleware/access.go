package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin chat can invoke downstream
// handlers. Matches either the sender or the originating chat so that
// commands typed inside the admin support channel are accepted.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID == 0 {
				return next(c)
			}
			if sender := c.Sender(); sender != nil && sender.ID == opts.AdminID {
				return next(c)
			}
			if chat := c.Chat(); chat != nil && chat.ID == opts.AdminID {
				return next(c)
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
