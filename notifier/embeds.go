package notifier

import (
	"fmt"
	"time"
)

// Discord embed colors.
const (
	colorStarted  = 0x57F287
	colorProgress = 0x5865F2
	colorEnded    = 0xED4245
	colorPing     = 0xFEE75C
)

type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func startedEmbed(info EventInfo) embed {
	description := fmt.Sprintf("%s is now live. %d rounds ahead, good luck to all teams!", info.Name, info.Rounds)
	if info.LobbyCode != "" {
		description += fmt.Sprintf("\n\nLobby code: **%s**", info.LobbyCode)
	}
	return embed{
		Title:       fmt.Sprintf("%s has started", info.Name),
		Description: description,
		URL:         info.EventURL,
		Color:       colorStarted,
		Footer:      organizerFooter(info),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func progressEmbed(info EventInfo) embed {
	return embed{
		Title:       fmt.Sprintf("%s: round %d of %d complete", info.Name, info.CurrentRound, info.Rounds),
		Description: FormatStandings(info.Standings, "\n"),
		URL:         info.EventURL,
		Color:       colorProgress,
		Footer:      organizerFooter(info),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func endedEmbed(info EventInfo) embed {
	description := FormatStandings(info.Standings, "\n")
	if info.HasPrizepool {
		description += fmt.Sprintf("\n\nPrizepool: %.2f %s", info.Prizepool, info.PrizepoolCurrency)
	}
	return embed{
		Title:       fmt.Sprintf("%s has ended. Final standings", info.Name),
		Description: description,
		URL:         info.EventURL,
		Color:       colorEnded,
		Footer:      organizerFooter(info),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func pingEmbed() embed {
	return embed{
		Title:       "Ping",
		Description: "This channel is wired up and ready to receive event notifications.",
		Color:       colorPing,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func organizerFooter(info EventInfo) *embedFooter {
	if info.Organizer == "" {
		return nil
	}
	return &embedFooter{Text: fmt.Sprintf("Organized by %s", info.Organizer)}
}
