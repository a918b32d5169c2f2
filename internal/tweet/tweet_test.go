package tweet_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dialectmap/gswcorpus/internal/tweet"
)

func status(id string) *tweet.Tweet {
	return &tweet.Tweet{IDStr: id, Text: "text " + id}
}

func TestExtractSubTweets(t *testing.T) {
	tests := []struct {
		name     string
		tweets   []*tweet.Tweet
		expected []string
	}{
		{
			name:     "plain status kept as is",
			tweets:   []*tweet.Tweet{status("1")},
			expected: []string{"1"},
		},
		{
			name: "quote keeps container and quoted",
			tweets: []*tweet.Tweet{
				{IDStr: "1", QuotedStatus: status("2")},
			},
			expected: []string{"1", "2"},
		},
		{
			name: "pure retweet replaced by original",
			tweets: []*tweet.Tweet{
				{IDStr: "1", RetweetedStatus: status("2")},
			},
			expected: []string{"2"},
		},
		{
			name: "retweet of a quote yields original and quoted",
			tweets: []*tweet.Tweet{
				{IDStr: "1", RetweetedStatus: &tweet.Tweet{
					IDStr:        "2",
					QuotedStatus: status("3"),
				}},
			},
			expected: []string{"2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tweet.ExtractSubTweets(tt.tweets)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d sub-tweets, expected %d", len(got), len(tt.expected))
			}
			for i, st := range got {
				if st.Identity() != tt.expected[i] {
					t.Errorf("sub-tweet %d = %q, expected %q", i, st.Identity(), tt.expected[i])
				}
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		tw       *tweet.Tweet
		expected string
		wantErr  bool
	}{
		{
			name:     "extended text preferred",
			tw:       &tweet.Tweet{Text: "short", FullText: "full", ExtendedTweet: &tweet.ExtendedTweet{FullText: "extended"}},
			expected: "extended",
		},
		{
			name:     "full text over short text",
			tw:       &tweet.Tweet{Text: "short", FullText: "full"},
			expected: "full",
		},
		{
			name:     "short text fallback",
			tw:       &tweet.Tweet{Text: "short"},
			expected: "short",
		},
		{
			name:    "no text at all",
			tw:      &tweet.Tweet{IDStr: "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tw.ExtractText()
			if tt.wantErr {
				if !errors.Is(err, tweet.ErrNoText) {
					t.Fatalf("error = %v, expected ErrNoText", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExtractText() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestIsLimitNotice(t *testing.T) {
	notice := &tweet.Tweet{Limit: &tweet.StreamLimit{Track: 17}}
	if !notice.IsLimitNotice() {
		t.Error("limit notice not recognized")
	}
	if status("1").IsLimitNotice() {
		t.Error("status misclassified as limit notice")
	}
}

func TestHasGeo(t *testing.T) {
	tests := []struct {
		name     string
		tw       *tweet.Tweet
		expected bool
	}{
		{
			name:     "gps coordinates",
			tw:       &tweet.Tweet{Coordinates: &tweet.Point{Coordinates: []float64{8.54, 47.37}}},
			expected: true,
		},
		{
			name:     "place",
			tw:       &tweet.Tweet{Place: &tweet.Place{FullName: "Bern"}},
			expected: true,
		},
		{
			name:     "user location long enough",
			tw:       &tweet.Tweet{User: &tweet.User{Location: "Bern"}},
			expected: true,
		},
		{
			name:     "user location too short",
			tw:       &tweet.Tweet{User: &tweet.User{Location: "B"}},
			expected: false,
		},
		{
			name:     "no geo at all",
			tw:       &tweet.Tweet{User: &tweet.User{}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tw.HasGeo(3); got != tt.expected {
				t.Errorf("HasGeo() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestPlaceCentroid(t *testing.T) {
	tw := &tweet.Tweet{Place: &tweet.Place{BoundingBox: &tweet.BoundingBox{
		Coordinates: [][][]float64{{
			{8.0, 47.0}, {8.0, 48.0}, {9.0, 48.0}, {9.0, 47.0},
		}},
	}}}
	lon, lat, ok := tw.PlaceCentroid()
	if !ok {
		t.Fatal("expected centroid")
	}
	if lon != 8.5 || lat != 47.5 {
		t.Errorf("centroid = (%v, %v), expected (8.5, 47.5)", lon, lat)
	}

	if _, _, ok := status("1").PlaceCentroid(); ok {
		t.Error("expected no centroid without a place")
	}
}

func TestReadBatch(t *testing.T) {
	input := `{"id":1,"id_str":"1","text":"hoi"}
not json at all

{"id":2,"id_str":"2","text":"sali"}
`
	tweets, skipped, err := tweet.ReadBatch(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadBatch() error = %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, expected 2", len(tweets))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, expected 1", skipped)
	}
	if tweets[0].Identity() != "1" || tweets[1].Identity() != "2" {
		t.Errorf("unexpected identities %q, %q", tweets[0].Identity(), tweets[1].Identity())
	}
}
