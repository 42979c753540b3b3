package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/autorole/internal/adapters/notify"
	"github.com/okian/autorole/internal/domain/dedupe"
	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/internal/domain/intake"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// SourceDiscord marks requests submitted through Discord.
const SourceDiscord = "discord"

// Admin DM commands.
const (
	cmdEnable  = "enable"
	cmdDisable = "disable"
	cmdMute    = "mute"
	cmdUnmute  = "unmute"
	cmdStatus  = "status"
)

const adminUsage = "Commands: `enable`, `disable`, `mute <member id>`, `unmute <member id>`, `status`"

// Enqueuer accepts requests for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, req model.Request) (int, error)
}

// Controller drives the intake gate from admin commands.
type Controller interface {
	Enable() bool
	Disable() bool
	Enabled() bool
	Mute(subject string) bool
	Unmute(subject string) bool
	Muted(subject string) bool
	MutedSubjects() []string
}

// Bot handles messages: `role` commands from the request channel and admin
// commands from the admin's DMs.
type Bot struct {
	session  Session
	queue    Enqueuer
	gate     Controller
	notifier notify.Notifier
	seen     dedupe.Deduper

	guildID   string
	channelID string
	adminID   string
	languages []string

	logger logger.Logger
}

// NewBot creates a bot. Requests go to q, admin commands drive g and every
// reply goes through n.
func NewBot(s Session, q Enqueuer, g Controller, n notify.Notifier, opts ...Option) *Bot {
	b := &Bot{
		session:  s,
		queue:    q,
		gate:     g,
		notifier: n,
		logger:   logger.Get().Named("discord"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnMessage is the discordgo handler for MessageCreate events.
func (b *Bot) OnMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	b.Handle(context.Background(), m.Message)
}

// Handle dispatches one message.
func (b *Bot) Handle(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		if b.adminID != "" && m.Author.ID == b.adminID {
			b.admin(ctx, m)
		}
		return
	}
	if (b.guildID != "" && m.GuildID != b.guildID) || (b.channelID != "" && m.ChannelID != b.channelID) {
		return
	}

	cmd, args := intake.Split(m.Content)
	if cmd != intake.CommandRole {
		return
	}
	log := b.logger.With(logger.String("member", m.Author.ID), logger.String("message", m.ID))
	log.Debug(ctx, "role command received", logger.String("content", m.Content))

	probe := model.Request{GuildID: m.GuildID, Requester: requester(m), Origin: model.Origin{
		Source:    SourceDiscord,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
	}}

	parsed, err := intake.Parse(args, b.languages)
	if err != nil {
		if b.closed(m.Author.ID) {
			log.Info(ctx, "invalid role command ignored while intake is closed")
			return
		}
		metrics.RecordRequestRejected("invalid")
		log.Info(ctx, "invalid role command", logger.Error(err))
		b.report(ctx, log, probe, err)
		return
	}

	// The gateway redelivers messages after a resume.
	if b.seen != nil && b.seen.SeenAndRecord(ctx, m.ID) {
		metrics.RecordRequestRejected("duplicate")
		log.Debug(ctx, "duplicate message ignored")
		return
	}

	req := parsed.Request(m.GuildID, probe.Requester, probe.Origin)
	pos, err := b.queue.Enqueue(ctx, req)
	if err != nil && b.seen != nil {
		b.seen.Unrecord(ctx, m.ID)
	}
	switch {
	case errors.Is(err, gate.ErrDisabled), errors.Is(err, gate.ErrMuted):
		log.Info(ctx, "request ignored", logger.Error(err))
		return
	case err != nil:
		log.Warn(ctx, "enqueue failed", logger.Error(err))
		b.report(ctx, log, req, err)
		return
	}
	log.Info(ctx, "request queued", logger.String("request_id", req.ID), logger.Int("position", pos))
	if pos == 0 {
		return
	}
	if err := b.notifier.Queued(ctx, req, pos); err != nil {
		metrics.RecordNotificationError("queued")
		log.Warn(ctx, "acknowledgment failed", logger.Error(err))
	}
}

// closed reports whether the gate would refuse memberID right now.
func (b *Bot) closed(memberID string) bool {
	return b.gate != nil && (!b.gate.Enabled() || b.gate.Muted(memberID))
}

func (b *Bot) report(ctx context.Context, log logger.Logger, req model.Request, cause error) { //nolint:gocritic // hugeParam: requests are values
	if err := b.notifier.Failed(ctx, req, cause); err != nil {
		metrics.RecordNotificationError("failed")
		log.Warn(ctx, "failure reply failed", logger.Error(err))
	}
}

func (b *Bot) admin(ctx context.Context, m *discordgo.Message) {
	fields := strings.Fields(m.Content)
	if len(fields) == 0 {
		return
	}

	var text string
	switch cmd := strings.ToLower(fields[0]); {
	case cmd == cmdEnable:
		b.gate.Enable()
		text = "Bot is now enabled."
	case cmd == cmdDisable:
		b.gate.Disable()
		text = "Bot is now disabled."
	case (cmd == cmdMute || cmd == cmdUnmute) && len(fields) == 2:
		subject := strings.Trim(fields[1], "<@!>")
		if cmd == cmdMute {
			b.gate.Mute(subject)
			text = fmt.Sprintf("%s is now muted.", mention(subject))
		} else {
			b.gate.Unmute(subject)
			text = fmt.Sprintf("%s is no longer muted.", mention(subject))
		}
	case cmd == cmdStatus:
		text = fmt.Sprintf("Enabled: %t\nMuted: %d member(s)", b.gate.Enabled(), len(b.gate.MutedSubjects()))
	default:
		text = adminUsage
	}

	b.logger.Info(ctx, "admin command", logger.String("command", m.Content))
	if _, err := b.session.ChannelMessageSend(m.ChannelID, text, discordgo.WithContext(ctx)); err != nil {
		metrics.RecordErrorByComponent("discord", "admin_reply_failed")
		b.logger.Warn(ctx, "admin reply failed", logger.Error(err))
	}
}

func requester(m *discordgo.Message) model.Requester {
	r := model.Requester{MemberID: m.Author.ID, Tag: m.Author.String(), DisplayName: m.Author.Username}
	if m.Member != nil && m.Member.Nick != "" {
		r.DisplayName = m.Member.Nick
	}
	return r
}

// Run opens s with b's handler and serves until ctx is done.
func Run(ctx context.Context, s *discordgo.Session, b *Bot) error {
	if s == nil {
		return ErrNoSession
	}
	if b.queue == nil {
		return ErrNoEnqueuer
	}
	remove := s.AddHandler(b.OnMessage)
	defer remove()

	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.logger.Info(ctx, "discord session opened", logger.String("guild", b.guildID))

	<-ctx.Done()
	if err := s.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}
