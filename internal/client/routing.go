package client

import (
	"fmt"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
)

// Route is where tapping a category card leads
type Route int

const (
	RouteNone Route = iota
	RouteSubmit
	RouteVote
)

func (r Route) String() string {
	switch r {
	case RouteSubmit:
		return "submit"
	case RouteVote:
		return "vote"
	default:
		return "none"
	}
}

// RouteFor routes by category status. Upcoming and closed categories
// are not actionable.
func RouteFor(cat *models.Category) Route {
	switch cat.Status {
	case models.CategorySubmission:
		return RouteSubmit
	case models.CategoryVoting:
		return RouteVote
	default:
		return RouteNone
	}
}

// Deadline is the end of the window the category is currently in
func Deadline(cat *models.Category) time.Time {
	if cat.Status == models.CategorySubmission {
		return cat.SubmissionEnd
	}
	return cat.VotingEnd
}

// Countdown formats the time left until target: "Closed" once passed,
// "1d 2h 3m" beyond a day, otherwise "2h 3m 4s"
func Countdown(target, now time.Time) string {
	diff := target.Sub(now)
	if diff <= 0 {
		return "Closed"
	}
	d := int(diff / (24 * time.Hour))
	h := int(diff%(24*time.Hour)) / int(time.Hour)
	m := int(diff%time.Hour) / int(time.Minute)
	s := int(diff%time.Minute) / int(time.Second)
	if d > 0 {
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	}
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// StatusLabel is the caption shown above a category's countdown
func StatusLabel(cat *models.Category) string {
	switch cat.Status {
	case models.CategorySubmission:
		return "Submissions close in"
	case models.CategoryVoting:
		return "Voting ends in"
	case models.CategoryUpcoming:
		return "Opening soon"
	default:
		return "Competition closed"
	}
}

// CallToAction is the card's action text, empty when not actionable
func CallToAction(cat *models.Category) string {
	switch RouteFor(cat) {
	case RouteSubmit:
		return "Submit your entry →"
	case RouteVote:
		return "Vote now →"
	default:
		return ""
	}
}
