package cli

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/abrezinsky/consensus/internal/client"
)

const bannerWidth = 62

var bannerFrameDelay = 80 * time.Millisecond

var logo = []string{
	`      ____                                                `,
	`     / ___|___  _ __  ___  ___ _ __  ___ _   _ ___        `,
	`    | |   / _ \| '_ \/ __|/ _ \ '_ \/ __| | | / __|       `,
	`    | |__| (_) | | | \__ \  __/ | | \__ \ |_| \__ \       `,
	`     \____\___/|_| |_|___/\___|_| |_|___/\__,_|___/       `,
	`                                    the world decides     `,
}

// showBanner prints the Consensus logo, then unless skipSwipe is set
// swipes three photo cards off the screen and shows each verdict
func showBanner(w io.Writer, skipSwipe bool) {
	border := strings.Repeat("═", bannerWidth)

	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		if n := len(line); n < bannerWidth {
			line += strings.Repeat(" ", bannerWidth-n)
		}
		fmt.Fprintf(w, "  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n", cyan, border, reset)

	if skipSwipe {
		fmt.Fprint(w, "\n")
		return
	}

	// Turn the bottom border into a divider and draw the cards below it
	fmt.Fprintf(w, moveUp, 1)
	fmt.Fprintf(w, "%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	cards := []string{red, blue, green}
	const art = "[=(o)=]"
	maxPos := bannerWidth - len(art)

	positions := make([]int, len(cards))
	dirs := make([]int, len(cards))
	speeds := []int{3, 4, 5}
	rand.Shuffle(len(speeds), func(i, j int) { speeds[i], speeds[j] = speeds[j], speeds[i] })
	for i := range cards {
		positions[i] = maxPos / 2
		dirs[i] = 1
		if rand.Intn(2) == 0 {
			dirs[i] = -1
		}
	}

	lane := func(pos int, color string) string {
		return fmt.Sprintf("%s  %s║%s%s%s%s%s║%s\n", clearLine, cyan,
			strings.Repeat(" ", pos), color, art, reset+cyan,
			strings.Repeat(" ", maxPos-pos), reset)
	}

	for i := range cards {
		fmt.Fprint(w, lane(positions[i], cards[i]))
	}
	fmt.Fprintf(w, "%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)

	const frames = 12
	for frame := 0; frame < frames; frame++ {
		fmt.Fprintf(w, moveUp, len(cards)+1)
		for i, color := range cards {
			positions[i] += dirs[i] * speeds[i]
			if positions[i] < 0 {
				positions[i] = 0
			}
			if positions[i] > maxPos {
				positions[i] = maxPos
			}
			fmt.Fprint(w, lane(positions[i], color))
		}
		fmt.Fprintf(w, "%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)
		time.Sleep(bannerFrameDelay)
	}

	// Redraw each card pinned to its edge with the verdict beside it
	fmt.Fprintf(w, moveUp, len(cards)+1)
	total := 0
	for i, color := range cards {
		var line string
		if dirs[i] > 0 {
			total++
			line = strings.Repeat(" ", maxPos-8) + green + " YES +1 " + color + art
		} else {
			total--
			line = color + art + red + " NO  -1 " + reset + strings.Repeat(" ", maxPos-8)
		}
		fmt.Fprintf(w, "%s  %s║%s%s║%s\n", clearLine, cyan, line, cyan, reset)
	}
	fmt.Fprintf(w, "%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)
	fmt.Fprintf(w, "  %sConsensus reached: %s%s\n\n", bold, client.ScoreLabel(total), reset)
}

