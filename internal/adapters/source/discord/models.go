package discord

import (
	"encoding/json"
	"strings"
	"time"

	"invitehound/internal/services/monitor/domain"
)

// gateway opcodes used by this client
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// intents: guilds, guild messages, message content
const defaultIntents = 1<<0 | 1<<9 | 1<<15

// payload is the envelope every gateway frame arrives in
type payload struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  *int64          `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type helloData struct {
	HeartbeatIntervalMS float64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type readyData struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

type messageCreate struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		ID string `json:"id"`
	} `json:"author"`
	Attachments []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	} `json:"attachments"`
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

func isImageFilename(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// toSourceItem maps a MESSAGE_CREATE event to the pipeline's item shape.
// Only image attachments survive the mapping
func (m messageCreate) toSourceItem() domain.SourceItem {
	created, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		created = time.Now().UTC()
	}

	guild := m.GuildID
	if guild == "" {
		guild = "@me"
	}

	var images []domain.ImageRef
	for _, att := range m.Attachments {
		if isImageFilename(att.Filename) {
			images = append(images, domain.ImageRef{URL: att.URL, Filename: att.Filename})
		}
	}

	return domain.SourceItem{
		ID:        m.ID,
		Body:      m.Content,
		CreatedAt: created.UTC(),
		Permalink: "https://discord.com/channels/" + guild + "/" + m.ChannelID + "/" + m.ID,
		Images:    images,
		Source:    domain.SourceDiscord,
	}
}
