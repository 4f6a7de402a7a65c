package news

import "strings"

var positiveCues = []string{
	"surge", "rises", "soars", "wins", "approval", "contract", "profit",
	"gains", "record", "beat", "rebound", "momentum", "order",
}

var negativeCues = []string{
	"falls", "drops", "loss", "probe", "penalty", "ban", "fraud",
	"downgrade", "resigns", "default", "strike", "fire",
}

// Classify labels a headline by keyword presence. Each cue counts once no
// matter how often it occurs.
func Classify(title string) Impact {
	s := strings.ToLower(title)
	tally := 0
	for _, w := range positiveCues {
		if strings.Contains(s, w) {
			tally++
		}
	}
	for _, w := range negativeCues {
		if strings.Contains(s, w) {
			tally--
		}
	}
	switch {
	case tally > 0:
		return ImpactPositive
	case tally < 0:
		return ImpactNegative
	default:
		return ImpactNeutral
	}
}
