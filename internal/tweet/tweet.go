// Package tweet defines the typed view of raw tweets as read from the
// newline-delimited JSON batch files, together with the unwrapping rules for
// retweets and quotes, text extraction and the geo-availability predicate.
package tweet

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
)

// ErrNoText is returned when a status-shaped tweet carries none of the known
// text fields. It indicates an unhandled tweet variant and should be surfaced.
var ErrNoText = errors.New("tweet has no text field")

// Point is a GeoJSON point as embedded in the tweet coordinates field.
// Coordinates are [longitude, latitude].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// BoundingBox is the polygon attached to a twitter place.
type BoundingBox struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

/// Place is the twitter place object: a named area with a bounding box.
type Place struct {
	ID          string       `json:"id"`
	FullName    string       `json:"full_name"`
	CountryCode string       `json:"country_code"`
	BoundingBox *BoundingBox `json:"bounding_box"`
}

// User is the subset of the tweet author object the pipeline reads.
type User struct {
	ID       int64  `json:"id"`
	IDStr    string `json:"id_str"`
	Location string `json:"location"`
}

// ExtendedTweet holds the long-form text of tweets over the classic length.
type ExtendedTweet struct {
	FullText string `json:"full_text"`
}

// StreamLimit is the rate-limit notice the streaming endpoint interleaves
// with statuses. It is not a status and is skipped silently.
type StreamLimit struct {
	Track int64 `json:"track"`
}

// Tweet is one raw tweet object. Retweets and quotes embed further Tweet
// objects; the nesting the platform produces is at most two levels deep
// (retweet of a quote), and ExtractSubTweets only ever descends that far.
type Tweet struct {
	ID              int64          `json:"id"`
	IDStr           string         `json:"id_str"`
	Text            string         `json:"text"`
	FullText        string         `json:"full_text"`
	ExtendedTweet   *ExtendedTweet `json:"extended_tweet"`
	RetweetedStatus *Tweet         `json:"retweeted_status"`
	QuotedStatus    *Tweet         `json:"quoted_status"`
	Coordinates     *Point         `json:"coordinates"`
	Place           *Place         `json:"place"`
	User            *User          `json:"user"`
	Limit           *StreamLimit   `json:"limit"`
}

// Identity returns the stable identifier of the tweet, preferring the string
// form. Empty when the object carries no id (e.g. a stream notice).
func (t *Tweet) Identity() string {
	if t.IDStr != "" {
		return t.IDStr
	}
	if t.ID != 0 {
		return strconv.FormatInt(t.ID, 10)
	}
	return ""
}

// IsLimitNotice reports whether the object is a stream rate-limit notice
// rather than a status.
func (t *Tweet) IsLimitNotice() bool {
	return t.Limit != nil && t.Identity() == ""
}

// ExtractText returns the tweet text, preferring the extended long form over
// the full_text field over the classic text field. ErrNoText is returned for
// status objects with none of these.
func (t *Tweet) ExtractText() (string, error) {
	if t.ExtendedTweet != nil && t.ExtendedTweet.FullText != "" {
		return t.ExtendedTweet.FullText, nil
	}
	if t.FullText != "" {
		return t.FullText, nil
	}
	if t.Text != "" {
		return t.Text, nil
	}
	return "", ErrNoText
}

// GPS returns the precise coordinates (lon, lat) when the tweet carries them.
func (t *Tweet) GPS() (lon, lat float64, ok bool) {
	if t.Coordinates == nil || len(t.Coordinates.Coordinates) < 2 {
		return 0, 0, false
	}
	return t.Coordinates.Coordinates[0], t.Coordinates.Coordinates[1], true
}

/// PlaceCentroid returns the centroid of the place bounding box: the midpoint
// of the longitude and latitude extents of the first polygon.
func (t *Tweet) PlaceCentroid() (lon, lat float64, ok bool) {
	if t.Place == nil || t.Place.BoundingBox == nil ||
		len(t.Place.BoundingBox.Coordinates) == 0 ||
		len(t.Place.BoundingBox.Coordinates[0]) == 0 {
		return 0, 0, false
	}
	if len(t.Place.BoundingBox.Coordinates) > 1 {
		slog.Warn("place has multiple polygons, using the first",
			"tweet_id", t.Identity())
	}
	ring := t.Place.BoundingBox.Coordinates[0]
	minLon, maxLon := ring[0][0], ring[0][0]
	minLat, maxLat := ring[0][1], ring[0][1]
	for _, pt := range ring[1:] {
		if pt[0] < minLon {
			minLon = pt[0]
		}
		if pt[0] > maxLon {
			maxLon = pt[0]
		}
		if pt[1] < minLat {
			minLat = pt[1]
		}
		if pt[1] > maxLat {
			maxLat = pt[1]
		}
	}
	return (minLon + maxLon) / 2, (minLat + maxLat) / 2, true
}

// UserLocation returns the free-text location field of the author, or "".
func (t *Tweet) UserLocation() string {
	if t.User == nil {
		return ""
	}
	return t.User.Location
}

/// HasGeo reports whether the tweet carries any usable geographic signal: GPS
// coordinates, a place, or a user location of at least minLocationLen runes.
func (t *Tweet) HasGeo(minLocationLen int) bool {
	if _, _, ok := t.GPS(); ok {
		return true
	}
	if t.Place != nil {
		return true
	}
	loc := t.UserLocation()
	return loc != "" && len([]rune(loc)) >= minLocationLen
}

// ExtractSubTweets unwraps the embedded tweets of each element. A pure
// retweet is replaced by the retweeted original (their text is identical), a
// quote is kept alongside the quoted tweet, and a retweet of a quote yields
// the original plus the quoted tweet.
func ExtractSubTweets(tweets []*Tweet) []*Tweet {
	var all []*Tweet
	for _, t := range tweets {
		if rt := t.RetweetedStatus; rt != nil {
			all = append(all, rt)
			if rt.QuotedStatus != nil {
				all = append(all, rt.QuotedStatus)
			}
		} else {
			all = append(all, t)
		}
		if t.QuotedStatus != nil {
			all = append(all, t.QuotedStatus)
		}
	}
	return all
}

// ReadBatch parses newline-delimited JSON tweets from r. Malformed lines are
// logged and skipped rather than aborting the batch; the skipped count is
// returned alongside the tweets.
func ReadBatch(r io.Reader) ([]*Tweet, int, error) {
	var (
		tweets  []*Tweet
		skipped int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t Tweet
		if err := json.Unmarshal(line, &t); err != nil {
			slog.Warn("skipping malformed tweet line", "error", err)
			skipped++
			continue
		}
		tweets = append(tweets, &t)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return tweets, skipped, nil
}
