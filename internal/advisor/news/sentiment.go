package news

import "strings"

// Lexical sentiment scoring. Deliberately simple: headline language in
// crypto press is blunt enough that keyword polarity separates the regimes
// that matter for a directional vote.

var bullishTerms = []string{
	"surge", "rally", "soar", "jump", "gain", "breakout", "bullish",
	"adoption", "approval", "etf inflow", "all-time high", "upgrade",
	"accumulate", "institutional", "partnership", "record high", "rebound",
}

var bearishTerms = []string{
	"crash", "plunge", "dump", "selloff", "sell-off", "bearish", "hack",
	"exploit", "lawsuit", "ban", "crackdown", "liquidation", "outflow",
	"fraud", "collapse", "delist", "downgrade", "fud", "rug",
}

// scoreText returns a polarity in [-1, 1] for one block of text.
func scoreText(text string) float64 {
	t := strings.ToLower(text)

	var bull, bear int
	for _, term := range bullishTerms {
		bull += strings.Count(t, term)
	}
	for _, term := range bearishTerms {
		bear += strings.Count(t, term)
	}

	total := bull + bear
	if total == 0 {
		return 0
	}
	return float64(bull-bear) / float64(total)
}

// scoreArticle weights the headline double: listing pages often truncate
// bodies, and the headline carries the editorial slant anyway.
func scoreArticle(a Article) float64 {
	title := scoreText(a.Title)
	if a.Content == "" {
		return title
	}
	return (2*title + scoreText(a.Content)) / 3
}

// aggregate reduces per-article polarities to a mean score and a
// consistency measure (share of articles agreeing with the dominant sign).
func aggregate(articles []Article) (score, consistency float64, scored int) {
	var sum float64
	var pos, neg, neutral int
	for _, a := range articles {
		s := scoreArticle(a)
		sum += s
		switch {
		case s > 0.1:
			pos++
		case s < -0.1:
			neg++
		default:
			neutral++
		}
	}
	scored = len(articles)
	if scored == 0 {
		return 0, 0, 0
	}
	score = sum / float64(scored)

	dominant := pos
	if neg > dominant {
		dominant = neg
	}
	if neutral > dominant {
		dominant = neutral
	}
	consistency = float64(dominant) / float64(scored)
	return score, consistency, scored
}
