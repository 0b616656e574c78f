package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/mirrorlake/dreamforge/internal/session"
)

const (
	colorPending = 0xf1c40f
	colorDone    = 0x2ecc71
	colorError   = 0xe74c3c
)

func pendingEmbed(prompt string, count int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Dreaming...",
		Description: fmt.Sprintf("Generating %d image(s). This message updates when they are ready.", count),
		Color:       colorPending,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prompt", Value: truncate(prompt, 1024)},
		},
	}
}

// resultEmbed shows the combined strip when one was produced, falling back
// to individual links otherwise.
func resultEmbed(prompt string, images []session.Image, combinedURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Dream complete",
		Color: colorDone,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prompt", Value: truncate(prompt, 1024)},
		},
	}

	if combinedURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: combinedURL}
		return embed
	}

	for n, img := range images {
		if img.Queued() {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Image %d", n+1),
			Value: img.URL,
		})
	}
	return embed
}

func errorEmbed(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Something went wrong",
		Description: text,
		Color:       colorError,
	}
}

func publishComponents(sessionID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Publish",
					Style:    discordgo.PrimaryButton,
					CustomID: publishPrefix + sessionID,
				},
			},
		},
	}
}
