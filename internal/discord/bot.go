// Package discord is the thin chat-facing layer: channel discovery, embed
// rendering, announcement delivery, and the slash-command surface. All
// decisions about what to announce live in pkg/reconcile.
package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/fredbot/fred/pkg/schedule"
	"github.com/fredbot/fred/pkg/state"
)

// Config for the bot connection.
type Config struct {
	Token   string
	OwnerID string
	Channel string // text channel name announcements go to
}

// Bot wraps one Discord session.
type Bot struct {
	session *discordgo.Session
	engine  *reconcile.Engine
	store   *state.Store
	confirm *reconcile.Confirmations
	sched   *schedule.Scheduler

	ownerID     string
	channelName string
	onShutdown  func()

	mu     sync.Mutex
	nudged map[string]bool // guilds already sent the setup nudge this session
}

func New(cfg Config, engine *reconcile.Engine, store *state.Store, confirm *reconcile.Confirmations, sched *schedule.Scheduler, onShutdown func()) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session:     session,
		engine:      engine,
		store:       store,
		confirm:     confirm,
		sched:       sched,
		ownerID:     cfg.OwnerID,
		channelName: cfg.Channel,
		onShutdown:  onShutdown,
		nudged:      make(map[string]bool),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteraction)
	return b, nil
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	utils.Log.Infof("Bot logged in as %s, connected to %d guilds", s.State.User.String(), len(r.Guilds))

	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commandDefs()); err != nil {
		utils.Log.Errorf("Failed to register slash commands: %v", err)
	}
	if err := s.UpdateWatchStatus(0, "for free games | /commands"); err != nil {
		utils.Log.Warnf("Could not set presence: %v", err)
	}
}

// onGuildCreate audits each guild as it becomes available: log the
// announcement channel when present, nudge the guild to run /setup when
// not.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if ch := b.findChannel(g.Guild); ch != nil {
		utils.Log.Infof("Found channel '%s' in %s (ID: %s)", b.channelName, g.Name, ch.ID)
		return
	}

	b.mu.Lock()
	already := b.nudged[g.ID]
	b.nudged[g.ID] = true
	b.mu.Unlock()
	if already {
		return
	}

	utils.Log.Warnf("No '%s' channel in %s", b.channelName, g.Name)
	target := b.nudgeTarget(g.Guild)
	if target == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(target, setupNudgeEmbed(b.channelName)); err != nil {
		utils.Log.Warnf("Could not send setup message to %s: %v", g.Name, err)
	}
}

func (b *Bot) findChannel(g *discordgo.Guild) *discordgo.Channel {
	for _, ch := range g.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == b.channelName {
			return ch
		}
	}
	return nil
}

// nudgeTarget picks where to send the setup hint: the system channel when
// there is one, otherwise the first text channel.
func (b *Bot) nudgeTarget(g *discordgo.Guild) string {
	if g.SystemChannelID != "" {
		return g.SystemChannelID
	}
	for _, ch := range g.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			return ch.ID
		}
	}
	return ""
}

// channelIDs lists every announcement channel across all guilds.
func (b *Bot) channelIDs() []string {
	var ids []string
	for _, g := range b.session.State.Guilds {
		if ch := b.findChannel(g); ch != nil {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

// Announce delivers a reconcile delta to every announcement channel. One
// failing channel is logged and skipped; it never blocks the others.
func (b *Bot) Announce(res *reconcile.Result) {
	ids := b.channelIDs()
	if len(ids) == 0 {
		utils.Log.Warn("No channels found to post to")
		return
	}
	b.announceTo(ids, res)
}

func (b *Bot) announceTo(channelIDs []string, res *reconcile.Result) {
	current := embedsFor(res.Current, res.RequestedBy, false)
	upcoming := embedsFor(res.NewUpcoming, res.RequestedBy, true)

	for _, id := range channelIDs {
		if err := b.post(id, current, upcoming); err != nil {
			utils.Log.Warnf("Failed to post to channel %s: %v", id, err)
			continue
		}
		utils.Log.Debugf("Posted to channel %s", id)
	}
}

func (b *Bot) post(channelID string, current, upcoming []*discordgo.MessageEmbed) error {
	if len(current) > 0 {
		if _, err := b.session.ChannelMessageSend(channelID, "**Current Free Games:**"); err != nil {
			return err
		}
		for _, e := range current {
			if _, err := b.session.ChannelMessageSendEmbed(channelID, e); err != nil {
				return err
			}
		}
	}
	if len(upcoming) > 0 {
		if _, err := b.session.ChannelMessageSend(channelID, "**Upcoming Free Games:**"); err != nil {
			return err
		}
		for _, e := range upcoming {
			if _, err := b.session.ChannelMessageSendEmbed(channelID, e); err != nil {
				return err
			}
		}
	}
	return nil
}
