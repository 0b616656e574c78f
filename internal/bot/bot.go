// Package bot is the Discord surface: the /dream slash command, the publish
// button, and the message edits that deliver converged sessions back to the
// channel.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/mirrorlake/dreamforge/internal/config"
	"github.com/mirrorlake/dreamforge/internal/dream"
	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/queue"
	"github.com/mirrorlake/dreamforge/internal/session"
)

const publishPrefix = "publish:"

// TaskQueue accepts product tasks for asynchronous publication.
type TaskQueue interface {
	Push(ctx context.Context, queueName string, task any) error
}

type Bot struct {
	discord *discordgo.Session
	dreams  *dream.Service
	queue   TaskQueue
	cfg     config.BotConfig
	shopify config.ShopifyConfig
	ctx     context.Context
}

func New(cfg config.BotConfig, shopify config.ShopifyConfig, dreams *dream.Service, q TaskQueue) (*Bot, error) {
	discord, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		discord: discord,
		dreams:  dreams,
		queue:   q,
		cfg:     cfg,
		shopify: shopify,
	}

	discord.AddHandler(b.handleInteraction)

	return b, nil
}

// Start opens the gateway connection, registers the slash commands, and
// blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	if err := b.discord.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		b.discord.Close()
		return err
	}

	logger.Info("bot started", "user", b.discord.State.User.Username)

	<-ctx.Done()
	return b.discord.Close()
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "dream",
			Description: "Generate images from a prompt",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "What to dream up",
					Required:    true,
				},
			},
		},
	}

	appID := b.discord.State.User.ID
	for _, cmd := range commands {
		if _, err := b.discord.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
		logger.Info("command registered", "name", cmd.Name)
	}
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == "dream" {
			b.handleDream(s, i)
		}
	case discordgo.InteractionMessageComponent:
		if strings.HasPrefix(i.MessageComponentData().CustomID, publishPrefix) {
			b.handlePublish(s, i)
		}
	}
}

// handleDream defers the response, fans out generation, posts the pending
// result, and starts the convergence poll for the new session.
func (b *Bot) handleDream(s *discordgo.Session, i *discordgo.InteractionCreate) {
	prompt := i.ApplicationCommandData().Options[0].StringValue()
	logger.Info("dream requested", "from", interactionUser(i), "prompt", truncate(prompt, 50))

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Error("defer failed", "error", err)
		return
	}

	images, sessionID, err := b.dreams.Generate(b.ctx, prompt)
	if err != nil || len(images) == 0 {
		logger.Error("dream failed", "session_id", sessionID, "error", err)
		b.followupError(s, i, "Image generation failed. Try again in a moment.")
		return
	}

	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{pendingEmbed(prompt, len(images))},
	}
	if b.shopify.Enabled {
		params.Components = publishComponents(sessionID)
	}

	msg, err := s.FollowupMessageCreate(i.Interaction, true, params)
	if err != nil {
		logger.Error("followup failed", "session_id", sessionID, "error", err)
		return
	}

	sess := b.dreams.Sessions().Get(sessionID)
	if sess == nil {
		logger.Error("session vanished before poll start", "session_id", sessionID)
		return
	}
	sess.SetMessage(msg.ChannelID, msg.ID)

	b.dreams.StartPolling(sessionID)
}

// handlePublish queues one product task per resolved image of the session
// behind the pressed button.
func (b *Bot) handlePublish(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sessionID := strings.TrimPrefix(i.MessageComponentData().CustomID, publishPrefix)

	sess := b.dreams.Sessions().Get(sessionID)
	if sess == nil {
		b.respondEphemeral(s, i, "That session has expired.")
		return
	}

	userID := interactionUser(i)
	var queued int
	for _, img := range sess.Images() {
		if img.Queued() {
			continue
		}

		task := queue.ProductTask{
			ID:       uuid.NewString(),
			FileName: img.FileName,
			UserID:   userID,
			Product: queue.ProductData{
				Title:       productTitle(sess.Prompt),
				Description: fmt.Sprintf("Generated from the prompt: %s", sess.Prompt),
			},
		}
		if err := b.queue.Push(b.ctx, b.shopify.QueueName, &task); err != nil {
			logger.Error("product queue push failed", "session_id", sessionID, "file", img.FileName, "error", err)
			continue
		}
		queued++
	}

	logger.Info("products queued", "session_id", sessionID, "count", queued, "user", userID)

	if queued == 0 {
		b.respondEphemeral(s, i, "Nothing to publish yet. Wait for the images to finish uploading.")
		return
	}
	b.respondEphemeral(s, i, fmt.Sprintf("Queued %d product(s) for publication.", queued))
}

// UpdateResult edits the session's outward message with the converged
// images. Called from the poll loop.
func (b *Bot) UpdateResult(msg session.Message, prompt string, images []session.Image, combinedURL string) error {
	embeds := []*discordgo.MessageEmbed{resultEmbed(prompt, images, combinedURL)}
	_, err := b.discord.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: msg.ChannelID,
		ID:      msg.MessageID,
		Embeds:  &embeds,
	})
	if err != nil {
		logger.Error("result edit failed", "channel", msg.ChannelID, "message", msg.MessageID, "error", err)
	}
	return err
}

func (b *Bot) followupError(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{errorEmbed(text)},
	})
	if err != nil {
		logger.Error("error followup failed", "error", err)
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Error("ephemeral respond failed", "error", err)
	}
}

// interactionUser returns the triggering user's id for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func productTitle(prompt string) string {
	return "Dream: " + truncate(prompt, 60)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
