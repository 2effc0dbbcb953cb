package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fredbot/fred/pkg/epic"
)

const (
	embedColor   = 0x1E3A8A
	successColor = 0x4CAF50
	warningColor = 0xFF6B6B

	displayTimeLayout = "2006-01-02 15:04"
)

func embedsFor(games []epic.Game, checkedBy string, upcoming bool) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(games))
	for _, g := range games {
		embeds = append(embeds, gameEmbed(g, checkedBy, upcoming))
	}
	return embeds
}

// gameEmbed renders one listing. Missing feed fields show up as explicit
// placeholders rather than empty embeds.
func gameEmbed(g epic.Game, checkedBy string, upcoming bool) *discordgo.MessageEmbed {
	title := g.Title
	if title == "" {
		title = "Unknown Game"
	}
	description := g.Description
	if description == "" {
		description = "No description"
	}
	seller := g.Seller
	if seller == "" {
		seller = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		URL:         g.URL,
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Seller", Value: seller, Inline: true},
		},
	}

	if upcoming && g.FreeFrom != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Available From", Value: g.FreeFrom.Format(displayTimeLayout), Inline: true,
		})
	}
	if !upcoming && g.FreeUntil != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Available Until", Value: g.FreeUntil.Format(displayTimeLayout), Inline: true,
		})
	}

	if wide := g.WideImage(); wide != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: wide}
	} else if thumb := g.Thumbnail(); thumb != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
	}

	if checkedBy != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Checked by " + checkedBy}
	}
	return embed
}

func setupNudgeEmbed(channelName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Fred Setup Required",
		Description: fmt.Sprintf("Fred needs a channel named `%s` to post Epic Games updates.", channelName),
		Color:       warningColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Option 1: Auto-create", Value: "Use `/setup` and Fred will create the channel for you."},
			{Name: "Option 2: Manual", Value: fmt.Sprintf("Create a channel named `%s` yourself.", channelName)},
		},
	}
}

func welcomeEmbed(triggerAt string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Welcome to Free Games",
		Description: "Daily Epic Games Store updates at " + triggerAt,
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Quick Commands", Value: "`/current` - Current games\n`/upcoming` - Upcoming games\n`/commands` - All commands"},
		},
	}
}
