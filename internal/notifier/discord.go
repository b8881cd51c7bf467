package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/nifgashim/trek-api/internal/models"
	"github.com/sirupsen/logrus"
)

// DiscordAnnouncer posts payment outcomes to the organizers' channel.
// It implements payments.Announcer and is strictly best effort.
type DiscordAnnouncer struct {
	session   *discordgo.Session
	channelID string
	log       *logrus.Logger
}

func NewDiscordAnnouncer(session *discordgo.Session, channelID string, log *logrus.Logger) *DiscordAnnouncer {
	return &DiscordAnnouncer{session: session, channelID: channelID, log: log}
}

func (a *DiscordAnnouncer) AnnouncePayment(reg *models.Registration, trip *models.Trip, succeeded bool) {
	if a.session == nil || a.channelID == "" {
		return
	}

	status := "✅ **Payment received**"
	if !succeeded {
		status = "❌ **Payment declined**"
	}

	names := make([]string, 0, len(reg.Participants))
	for _, p := range reg.Participants {
		names = append(names, p.Name)
	}

	message := fmt.Sprintf("%s\n**Trip:** %s\n**Registration:** %s\n**Participants:** %d (%s)\n**Amount:** %.2f\n**Days:** %v",
		status,
		trip.Name,
		reg.ID,
		len(reg.Participants),
		joinNames(names),
		reg.Amount,
		[]int(reg.SelectedDays),
	)

	if _, err := a.session.ChannelMessageSend(a.channelID, message); err != nil {
		a.log.WithError(err).Warn("failed to send discord message")
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
