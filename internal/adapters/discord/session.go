// Package discord is the Discord front end: it turns `role` commands in the
// request channel into queued requests, answers admin DMs, mutates member
// roles and delivers replies.
package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of *discordgo.Session the adapter uses.
type Session interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

var _ Session = (*discordgo.Session)(nil)

// Intents the bot needs: guild and direct messages with their content, and
// guild members for role reads.
const Intents = discordgo.IntentGuildMessages |
	discordgo.IntentDirectMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentGuildMembers

// NewSession creates a bot session for token. The session is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
