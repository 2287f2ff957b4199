package client

import (
	"time"

	"github.com/abrezinsky/consensus/internal/models"
)

const (
	// SwipeThreshold is the fraction of the card width a drag must pass to count
	SwipeThreshold = 0.3
	// ExitDistance is how far, in card widths, a decided card flies off
	ExitDistance = 1.5
	// AnimationDuration is the length of the exit and settle animations
	AnimationDuration = 250 * time.Millisecond

	maxRotation = 8.0
)

// CardState is the state of the swipe card
type CardState int

const (
	CardIdle CardState = iota
	CardDragging
	CardDeciding
	CardSettling
)

func (s CardState) String() string {
	switch s {
	case CardDragging:
		return "dragging"
	case CardDeciding:
		return "deciding"
	case CardSettling:
		return "settling"
	default:
		return "idle"
	}
}

// Card tracks the drag offset and animations of the front swipe card.
// Animations cannot be interrupted; input that arrives during one is ignored.
type Card struct {
	width float64
	state CardState

	x, y         float64
	fromX, fromY float64
	toX          float64
	elapsed      time.Duration
	pending      models.VoteValue
}

// NewCard creates an idle card for a view of the given width
func NewCard(width float64) *Card {
	return &Card{width: width}
}

// State returns the current state
func (c *Card) State() CardState { return c.state }

// Offset returns the card's displacement from its resting position
func (c *Card) Offset() (x, y float64) { return c.x, c.y }

// PointerDown starts a drag
func (c *Card) PointerDown() {
	if c.state == CardIdle {
		c.state = CardDragging
	}
}

// PointerMove moves the card with the gesture
func (c *Card) PointerMove(dx, dy float64) {
	if c.state == CardDragging {
		c.x, c.y = dx, dy
	}
}

// PointerUp releases the card: past the threshold it flies off in the
// drag direction, otherwise it springs back
func (c *Card) PointerUp() {
	if c.state != CardDragging {
		return
	}
	limit := c.width * SwipeThreshold
	switch {
	case c.x > limit:
		c.decide(models.VoteYes)
	case c.x < -limit:
		c.decide(models.VoteNo)
	default:
		c.animate(CardSettling, 0)
	}
}

// Accept decides yes without a drag
func (c *Card) Accept() {
	if c.state == CardIdle {
		c.decide(models.VoteYes)
	}
}

// Reject decides no without a drag
func (c *Card) Reject() {
	if c.state == CardIdle {
		c.decide(models.VoteNo)
	}
}

func (c *Card) decide(value models.VoteValue) {
	c.pending = value
	c.animate(CardDeciding, float64(value)*c.width*ExitDistance)
}

func (c *Card) animate(state CardState, toX float64) {
	c.state = state
	c.fromX, c.fromY = c.x, c.y
	c.toX = toX
	c.elapsed = 0
}

// Advance moves a running animation forward. When an exit animation
// finishes it returns the decision and the card is back at rest.
func (c *Card) Advance(dt time.Duration) (models.VoteValue, bool) {
	if c.state != CardDeciding && c.state != CardSettling {
		return 0, false
	}
	c.elapsed += dt
	if c.elapsed < AnimationDuration {
		p := float64(c.elapsed) / float64(AnimationDuration)
		if c.state == CardSettling {
			p = easeOut(p)
		}
		c.x = c.fromX + (c.toX-c.fromX)*p
		c.y = c.fromY + (0-c.fromY)*p
		return 0, false
	}

	decided := c.state == CardDeciding
	value := c.pending
	c.state = CardIdle
	c.x, c.y = 0, 0
	c.pending = 0
	return value, decided
}

// Rotation is the card tilt in degrees, 8 at half a width to the right
func (c *Card) Rotation() float64 {
	if c.width == 0 {
		return 0
	}
	return c.x / (c.width / 2) * maxRotation
}

// YesOpacity is the opacity of the yes overlay, full at a quarter width right
func (c *Card) YesOpacity() float64 {
	return c.overlay(c.x)
}

// NoOpacity is the opacity of the no overlay, full at a quarter width left
func (c *Card) NoOpacity() float64 {
	return c.overlay(-c.x)
}

func (c *Card) overlay(x float64) float64 {
	if c.width == 0 {
		return 0
	}
	return clamp(x/(c.width/4), 0, 1)
}

func easeOut(p float64) float64 {
	return 1 - (1-p)*(1-p)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
