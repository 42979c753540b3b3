package discord

import (
	"github.com/okian/autorole/internal/domain/dedupe"
	"github.com/okian/autorole/pkg/logger"
)

// Option applies a configuration option to the Bot.
type Option func(*Bot)

// WithGuild restricts the bot to one guild.
func WithGuild(id string) Option {
	return func(b *Bot) { b.guildID = id }
}

// WithRequestChannel restricts `role` commands to one channel.
func WithRequestChannel(id string) Option {
	return func(b *Bot) { b.channelID = id }
}

// WithAdmin sets the user whose DMs drive the intake gate.
func WithAdmin(id string) Option {
	return func(b *Bot) { b.adminID = id }
}

// WithLanguages sets the language names, indexed by language id.
func WithLanguages(languages []string) Option {
	return func(b *Bot) { b.languages = languages }
}

// WithDeduper drops messages whose id was already queued.
func WithDeduper(d dedupe.Deduper) Option {
	return func(b *Bot) { b.seen = d }
}

// WithLogger sets a custom logger for the bot.
func WithLogger(l logger.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// NotifierOption applies a configuration option to the Notifier.
type NotifierOption func(*Notifier)

// WithModerators sets the members warned about high-score roles.
func WithModerators(ids ...string) NotifierOption {
	return func(n *Notifier) {
		for _, id := range ids {
			if id != "" {
				n.moderators = append(n.moderators, id)
			}
		}
	}
}

// WithNotifierLogger sets a custom logger for the notifier.
func WithNotifierLogger(l logger.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}
