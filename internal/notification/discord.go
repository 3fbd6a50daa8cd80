package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harvest-ai/nni-research-cli/internal/properties"
	log "github.com/sirupsen/logrus"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func SendDiscordErrorNotification(errorMessage string) error {
	return sendDiscord(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("NNI CLI run failed.\n\nAn error occurred: %s", errorMessage),
		Color:       16711680, // Red color
	})
}

func SendDiscordSuccessNotification(successMessage string) error {
	return sendDiscord(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: fmt.Sprintf("NNI CLI run finished.\n\n%s", successMessage),
		Color:       65280, // Green color
	})
}

// sendDiscord posts one embed to the webhook. An unset webhook disables notifications.
func sendDiscord(url string, embed DiscordEmbed) error {
	if url == "" {
		log.Debug("[Notification] webhook not configured, skipping")
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}
