package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/models"
)

const (
	tagline     = "Consensus · The world decides."
	cardArt     = "[=(o)=]"
	defaultIcon = "📷"
)

// renderCategories prints the landing list
func renderCategories(w io.Writer, cats []models.Category, now time.Time) {
	fmt.Fprintln(w, tagline)
	if len(cats) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No competitions right now. Check back soon!")
		return
	}

	for i := range cats {
		c := &cats[i]
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", icon(c), c.Name)
		if c.Description != "" {
			fmt.Fprintf(w, "   %s\n", c.Description)
		}

		switch client.RouteFor(c) {
		case client.RouteSubmit:
			fmt.Fprintf(w, "   %s %s\n", client.StatusLabel(c), client.Countdown(client.Deadline(c), now))
			fmt.Fprintf(w, "   %s  consensus submit %s <photo>\n", client.CallToAction(c), c.ID)
		case client.RouteVote:
			fmt.Fprintf(w, "   %s %s\n", client.StatusLabel(c), client.Countdown(client.Deadline(c), now))
			fmt.Fprintf(w, "   %s  consensus vote %s\n", client.CallToAction(c), c.ID)
			fmt.Fprintf(w, "   Standings:  consensus leaderboard %s\n", c.ID)
		default:
			if c.Status == models.CategoryUpcoming {
				fmt.Fprintf(w, "   %s, submissions open %s\n", client.StatusLabel(c),
					humanize.RelTime(c.SubmissionStart, now, "ago", "from now"))
			} else {
				fmt.Fprintf(w, "   %s %s\n", client.StatusLabel(c),
					humanize.RelTime(c.VotingEnd, now, "ago", "from now"))
				fmt.Fprintf(w, "   Final standings:  consensus leaderboard %s\n", c.ID)
			}
		}
	}
}

// renderLeaderboard prints a category's ranking
func renderLeaderboard(w io.Writer, cat *models.Category, rows []client.Row, now time.Time) {
	fmt.Fprintf(w, "🏆 %s\n", cat.Name)
	switch client.RouteFor(cat) {
	case client.RouteSubmit, client.RouteVote:
		fmt.Fprintf(w, "%s %s\n", client.StatusLabel(cat), client.Countdown(client.Deadline(cat), now))
	default:
		fmt.Fprintln(w, client.StatusLabel(cat))
	}
	fmt.Fprintln(w)

	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries yet.")
		return
	}
	for _, r := range rows {
		line := fmt.Sprintf("%s %5s  %s", r.Medal, r.ScoreLabel(), r.Name())
		if c := r.Submission.Caption; c != nil && *c != "" {
			line += " · " + *c
		}
		fmt.Fprintln(w, line)
	}
}

// renderEntry prints the entry a vote card shows
func renderEntry(w io.Writer, sub models.Submission, pos, total int) {
	fmt.Fprintf(w, "\n[%d/%d] %s\n", pos, total, sub.Profile.Name())
	if sub.Caption != nil && *sub.Caption != "" {
		fmt.Fprintf(w, "      \"%s\"\n", *sub.Caption)
	}
	fmt.Fprintf(w, "      %s\n", sub.PhotoURL)
}

// swipeTrack draws the card on a track of width columns, displaced by its
// drag offset, with the verdict overlay lit on the side it leans to
func swipeTrack(card *client.Card, width int) string {
	maxPos := width - len(cardArt)
	if maxPos < 0 {
		maxPos = 0
	}
	x, _ := card.Offset()
	pos := maxPos/2 + int(math.Round(x))
	if pos < 0 {
		pos = 0
	}
	if pos > maxPos {
		pos = maxPos
	}

	left, right := "  no", "yes  "
	if card.NoOpacity() > 0 {
		left = red + bold + "✗ NO" + reset
	}
	if card.YesOpacity() > 0 {
		right = green + bold + "YES ✓" + reset
	}
	return left + " |" + strings.Repeat(" ", pos) + cardArt + strings.Repeat(" ", maxPos-pos) + "| " + right
}

// trackWidth is the swipe track size for a terminal of cols columns
func trackWidth(cols int) int {
	w := cols - 16
	if w > 60 {
		w = 60
	}
	if w < len(cardArt)+2 {
		w = len(cardArt) + 2
	}
	return w
}

func icon(c *models.Category) string {
	if c.Emoji == "" {
		return defaultIcon
	}
	return c.Emoji
}
