package domain

import (
	"sort"
	"strings"
)

// LinkMatch is a link with its search score.
type LinkMatch struct {
	Link  *Link
	Score float64
}

// ScoreText scores a lower-cased query against one piece of text.
func ScoreText(queryStr, text string) float64 {
	if queryStr == "" || text == "" {
		return 0.0
	}

	text = strings.ToLower(text)

	// Exact match (highest score)
	if queryStr == text {
		return ScoreExactMatch + ScoreExactTitleBonus
	}

	// Prefix match
	if strings.HasPrefix(text, queryStr) {
		return ScorePrefixMatch
	}

	// Substring match
	if index := strings.Index(text, queryStr); index >= 0 {
		// Earlier substring matches get higher score
		substringBonus := ScorePositionBonus * (1.0 - float64(index)/float64(len(text)))
		return ScoreSubstringMatch + substringBonus
	}

	// Word match: every query word appears somewhere
	queryWords := strings.Fields(queryStr)
	if len(queryWords) > 1 {
		allMatch := true
		for _, word := range queryWords {
			if !strings.Contains(text, word) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return ScoreFuzzyMatch
		}
	}

	// Character similarity
	similarity := calculateSimilarity(queryStr, text)
	if similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// ScoreLink scores a link by title, with subtitle matches weighted down.
func ScoreLink(queryStr string, link *Link) float64 {
	if link == nil {
		return 0.0
	}
	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	score := ScoreText(queryStr, link.Title)
	if sub := ScoreText(queryStr, link.Subtitle) * ScoreSubtitleWeight; sub > score {
		score = sub
	}
	return score
}

// RankLinks returns the matching links, best first. Equal scores keep
// catalog order.
func RankLinks(queryStr string, links []*Link) []*LinkMatch {
	matches := make([]*LinkMatch, 0, len(links))

	for _, link := range links {
		score := ScoreLink(queryStr, link)

		// Skip links with zero score (no match)
		if score == 0.0 {
			continue
		}

		matches = append(matches, &LinkMatch{Link: link, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}
