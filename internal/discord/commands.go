package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/reconcile"
)

func commandDefs() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "commands", Description: "Show all available commands"},
		{Name: "current", Description: "Show current free games"},
		{Name: "upcoming", Description: "Show upcoming free games"},
		{Name: "next", Description: "Time until next automatic check"},
		{Name: "check", Description: "Manual check for new games (owner only)"},
		{Name: "confirm", Description: "Show games again if unchanged"},
		{Name: "setup", Description: "Create the free-games channel"},
		{Name: "shutdown", Description: "Shut down the bot (owner only)"},
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "commands":
		b.handleCommands(i)
	case "current":
		b.handleCurrent(i)
	case "upcoming":
		b.handleUpcoming(i)
	case "next":
		b.handleNext(i)
	case "check":
		b.handleCheck(i)
	case "confirm":
		b.handleConfirm(i)
	case "setup":
		b.handleSetup(i)
	case "shutdown":
		b.handleShutdown(i)
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respond(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		utils.Log.Warnf("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		utils.Log.Warnf("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		utils.Log.Warnf("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) sendText(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		utils.Log.Warnf("Failed to send message to %s: %v", channelID, err)
	}
}

func (b *Bot) sendEmbeds(channelID string, embeds []*discordgo.MessageEmbed) {
	for _, e := range embeds {
		if _, err := b.session.ChannelMessageSendEmbed(channelID, e); err != nil {
			utils.Log.Warnf("Failed to send embed to %s: %v", channelID, err)
			return
		}
	}
}

func (b *Bot) handleCommands(i *discordgo.InteractionCreate) {
	b.respondEmbed(i, &discordgo.MessageEmbed{
		Title:       "Fred - Epic Games Tracker",
		Description: "Track free Epic Games automatically.",
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "/current", Value: "Show current free games"},
			{Name: "/upcoming", Value: "Show upcoming free games"},
			{Name: "/next", Value: "Time until next check"},
			{Name: "/confirm", Value: "Show games again"},
			{Name: "/setup", Value: "Create free-games channel"},
			{Name: "/check", Value: "Manual check (owner only)"},
			{Name: "/shutdown", Value: "Shut down bot (owner only)"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Daily check at " + b.sched.TriggerLabel()},
	})
}

func (b *Bot) handleCurrent(i *discordgo.InteractionCreate) {
	games := b.store.Current()
	if len(games) == 0 {
		b.respond(i, "No current games to display.")
		return
	}
	b.respond(i, "**Current Free Games:**")
	b.sendEmbeds(i.ChannelID, embedsFor(games, interactionUser(i).Mention(), false))
}

func (b *Bot) handleUpcoming(i *discordgo.InteractionCreate) {
	games := b.store.Upcoming()
	if len(games) == 0 {
		b.respond(i, "No upcoming games to display.")
		return
	}
	b.respond(i, "**Upcoming Free Games:**")
	b.sendEmbeds(i.ChannelID, embedsFor(games, interactionUser(i).Mention(), true))
}

func (b *Bot) handleNext(i *discordgo.InteractionCreate) {
	now := time.Now()
	target := b.sched.NextRun(now)
	remaining := target.Sub(now)
	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60

	b.respondEmbed(i, &discordgo.MessageEmbed{
		Title:       "Next Automatic Check",
		Description: fmt.Sprintf("Next check: **%s**", target.Format("15:04 MST")),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Time Remaining", Value: fmt.Sprintf("%dh %dm", hours, minutes), Inline: true},
			{Name: "Date", Value: target.Format("2006-01-02"), Inline: true},
		},
	})
}

func (b *Bot) handleCheck(i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil || user.ID != b.ownerID {
		b.respondEphemeral(i, "Owner-only command.")
		return
	}

	mention := user.Mention()
	b.respond(i, "Manual check by "+mention)

	// The fetch can take up to its full timeout, well past the 3 seconds
	// Discord allows for the initial response, so the work moves off the
	// handler.
	channelID := i.ChannelID
	go func() {
		res, err := b.engine.Reconcile(context.Background(), reconcile.Manual, mention)
		if err != nil {
			utils.Log.Warnf("Manual check failed: %v", err)
			b.sendText(channelID, "Failed to fetch games.")
			return
		}
		if res.Outcome == reconcile.Unchanged {
			if res.ConfirmationArmed {
				b.sendText(channelID, fmt.Sprintf(
					"%s, games are the same as last check. Use /confirm within %s to see them again.",
					mention, windowLabel(b.confirm.Window())))
			}
			return
		}
		// Manual checks announce only where they were asked.
		b.announceTo([]string{channelID}, res)
	}()
}

func (b *Bot) handleConfirm(i *discordgo.InteractionCreate) {
	mention := interactionUser(i).Mention()
	if !b.confirm.TryConsume(mention, time.Now()) {
		b.respond(i, "No pending confirmation or it expired.")
		return
	}

	games := b.store.Current()
	if len(games) == 0 {
		b.respond(i, "No current games to display.")
		return
	}
	b.respond(i, "**Current Free Games:**")
	b.sendEmbeds(i.ChannelID, embedsFor(games, mention, false))
}

func (b *Bot) handleSetup(i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		b.respondEphemeral(i, "Must be used in a server.")
		return
	}
	if guild, err := b.session.State.Guild(i.GuildID); err == nil && b.findChannel(guild) != nil {
		b.respondEphemeral(i, fmt.Sprintf("Channel `%s` already exists.", b.channelName))
		return
	}
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageChannels == 0 {
		b.respondEphemeral(i, "You need 'Manage Channels' permission.")
		return
	}

	ch, err := b.session.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:  b.channelName,
		Type:  discordgo.ChannelTypeGuildText,
		Topic: "Free games from Epic Games Store - Updated daily by Fred",
	})
	if err != nil {
		b.respondEphemeral(i, fmt.Sprintf("Failed to create channel: %v", err))
		utils.Log.Errorf("Error creating channel in guild %s: %v", i.GuildID, err)
		return
	}

	b.respondEmbed(i, &discordgo.MessageEmbed{
		Title:       "Channel Created",
		Description: fmt.Sprintf("Fred will post updates in %s", ch.Mention()),
		Color:       successColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Daily Updates", Value: "Automatic check at " + b.sched.TriggerLabel()},
			{Name: "Commands", Value: "Use `/commands` to see all commands"},
		},
	})
	if _, err := b.session.ChannelMessageSendEmbed(ch.ID, welcomeEmbed(b.sched.TriggerLabel())); err != nil {
		utils.Log.Warnf("Could not send welcome message to %s: %v", ch.ID, err)
	}
	utils.Log.Infof("Created channel '%s' in guild %s", b.channelName, i.GuildID)
}

func (b *Bot) handleShutdown(i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil || user.ID != b.ownerID {
		b.respondEphemeral(i, "You don't have permission.")
		return
	}
	b.respond(i, "Shutting down...")
	if b.onShutdown != nil {
		b.onShutdown()
	}
}

func windowLabel(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d.Minutes()))
	}
	return d.String()
}
