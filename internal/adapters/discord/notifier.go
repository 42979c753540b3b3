package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/autorole/internal/adapters/notify"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Notifier replies to requesters by DM, falling back to the request channel
// when DMs are closed, reacts on the request message and warns moderators.
type Notifier struct {
	session    Session
	moderators []string
	logger     logger.Logger
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier over s.
func NewNotifier(s Session, opts ...NotifierOption) *Notifier {
	n := &Notifier{session: s, logger: logger.Get().Named("discord.notify")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Queued acknowledges req.
func (n *Notifier) Queued(ctx context.Context, req model.Request, position int) error { //nolint:gocritic // hugeParam: requests are values
	return n.reply(ctx, req, notify.Queued(position))
}

// Succeeded reports the changed roles and marks the request message.
func (n *Notifier) Succeeded(ctx context.Context, req model.Request, _ model.ProfileSnapshot, applied model.Applied) error { //nolint:gocritic // hugeParam: requests are values
	return errors.Join(
		n.reply(ctx, req, notify.Succeeded(applied)),
		n.react(ctx, req, notify.ReactionSucceeded),
	)
}

// Failed reports err, posts a public notice for profile problems and marks
// the request message with the failure tag.
func (n *Notifier) Failed(ctx context.Context, req model.Request, err error) error { //nolint:gocritic // hugeParam: requests are values
	text, tag := notify.Failed(err)
	var errs []error
	if notice := notify.Notice(err, mention(req.Requester.MemberID)); notice != "" && req.Origin.ChannelID != "" {
		errs = append(errs, n.send(ctx, req.Origin.ChannelID, notice))
	}
	errs = append(errs, n.reply(ctx, req, text))
	if tag != "" {
		errs = append(errs, n.react(ctx, req, tag))
	}
	errs = append(errs, n.react(ctx, req, notify.ReactionFailed))
	return errors.Join(errs...)
}

// HighScore DMs every moderator.
func (n *Notifier) HighScore(ctx context.Context, req model.Request, hs model.HighScoreNotification) error { //nolint:gocritic // hugeParam: requests are values
	var errs []error
	for _, id := range n.moderators {
		name := id
		if m, err := n.session.GuildMember(req.GuildID, id, discordgo.WithContext(ctx)); err == nil && m.User != nil {
			name = m.User.Username
		}
		if err := n.dm(ctx, id, notify.HighScore(name, req, hs)); err != nil {
			errs = append(errs, fmt.Errorf("moderator %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// reply DMs the requester; when that fails it reacts with the no-DM marker
// and answers in the request channel instead.
func (n *Notifier) reply(ctx context.Context, req model.Request, text string) error { //nolint:gocritic // hugeParam: requests are values
	err := n.dm(ctx, req.Requester.MemberID, text)
	if err == nil {
		return nil
	}
	n.logger.Debug(ctx, "dm failed, replying in channel",
		logger.String("member", req.Requester.MemberID), logger.Error(err))
	metrics.RecordErrorByComponent("discord", "dm_failed")

	if req.Origin.ChannelID == "" {
		return fmt.Errorf("%w: %w", ErrNoChannel, err)
	}
	return errors.Join(
		n.react(ctx, req, notify.ReactionNoDM),
		n.send(ctx, req.Origin.ChannelID, mention(req.Requester.MemberID)+" "+text),
	)
}

func (n *Notifier) dm(ctx context.Context, userID, text string) error {
	ch, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	return n.send(ctx, ch.ID, text)
}

func (n *Notifier) send(ctx context.Context, channelID, text string) error {
	if _, err := n.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (n *Notifier) react(ctx context.Context, req model.Request, emoji string) error { //nolint:gocritic // hugeParam: requests are values
	if req.Origin.ChannelID == "" || req.Origin.MessageID == "" {
		return nil
	}
	if err := n.session.MessageReactionAdd(req.Origin.ChannelID, req.Origin.MessageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("react %s: %w", emoji, err)
	}
	return nil
}

func mention(userID string) string { return "<@" + userID + ">" }
