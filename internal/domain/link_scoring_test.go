package domain

import "testing"

func TestScoreLink(t *testing.T) {
	tests := []struct {
		name           string
		queryStr       string
		title          string
		subtitle       string
		expectPositive bool
	}{
		{
			name:           "exact match",
			queryStr:       "chatgpt",
			title:          "ChatGPT",
			expectPositive: true,
		},
		{
			name:           "prefix match",
			queryStr:       "chat",
			title:          "ChatGPT",
			expectPositive: true,
		},
		{
			name:           "substring match",
			queryStr:       "gpt",
			title:          "ChatGPT",
			expectPositive: true,
		},
		{
			name:           "no match",
			queryStr:       "xyz",
			title:          "ChatGPT",
			expectPositive: false,
		},
		{
			name:           "multi-word match",
			queryStr:       "docker hub",
			title:          "Docker Hub",
			expectPositive: true,
		},
		{
			name:           "subtitle match",
			queryStr:       "video",
			title:          "Kdenlive",
			subtitle:       "Open source video editor",
			expectPositive: true,
		},
		{
			name:           "blank query",
			queryStr:       "   ",
			title:          "ChatGPT",
			expectPositive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &Link{
				ID:       "lnk-test",
				Title:    tt.title,
				Subtitle: tt.subtitle,
				URL:      "https://example.com",
			}

			score := ScoreLink(tt.queryStr, link)

			if tt.expectPositive && score <= 0 {
				t.Errorf("Expected positive score, got %f", score)
			}

			if !tt.expectPositive && score > 0 {
				t.Errorf("Expected zero score, got %f", score)
			}
		})
	}
}

func TestRankLinks_Ordering(t *testing.T) {
	links := []*Link{
		{ID: "sub", Title: "Kdenlive", Subtitle: "docker friendly editor"},
		{ID: "substring", Title: "My Docker Notes"},
		{ID: "exact", Title: "Docker"},
		{ID: "prefix", Title: "Docker Hub"},
		{ID: "none", Title: "Figma"},
	}

	matches := RankLinks("docker", links)

	want := []string{"exact", "prefix", "substring", "sub"}
	if len(matches) != len(want) {
		t.Fatalf("Expected %d matches, got %d", len(want), len(matches))
	}
	for i, id := range want {
		if matches[i].Link.ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, matches[i].Link.ID)
		}
	}
}

func TestRankLinks_StableOnTies(t *testing.T) {
	links := []*Link{
		{ID: "first", Title: "Grafana"},
		{ID: "second", Title: "Grafana"},
	}

	matches := RankLinks("grafana", links)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Link.ID != "first" || matches[1].Link.ID != "second" {
		t.Errorf("Expected catalog order on ties, got %s, %s", matches[0].Link.ID, matches[1].Link.ID)
	}
}
