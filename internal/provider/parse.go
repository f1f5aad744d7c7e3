package provider

import (
	"sort"
	"strings"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/tidwall/gjson"
)

// parseSearch reads the results array of a search response.  Results without an id are skipped.
func parseSearch(body string) []domain.CandidateMatch {
	results := gjson.Get(body, "results")
	if !results.IsArray() {
		return nil
	}

	var matches []domain.CandidateMatch
	for _, r := range results.Array() {
		id := r.Get("id").String()
		if id == "" {
			continue
		}
		matches = append(matches, domain.CandidateMatch{
			ID:    id,
			Title: firstString(r, "title", "title.english", "title.romaji", "name"),
		})
	}
	return matches
}

// parseEpisodes reads the episodes array of an info response.  An episode without a number takes its position in
// the list, numbers are unique with the first occurrence winning, and the list is sorted by number.
func parseEpisodes(body string, tag domain.ProviderTag) []domain.Episode {
	list := gjson.Get(body, "episodes")
	if !list.IsArray() {
		return nil
	}

	seen := map[int]bool{}
	var episodes []domain.Episode
	for i, e := range list.Array() {
		id := e.Get("id").String()
		if id == "" {
			continue
		}

		number := int(e.Get("number").Int())
		if number <= 0 {
			number = i + 1
		}
		if seen[number] {
			continue
		}
		seen[number] = true

		episodes = append(episodes, domain.Episode{
			ID:       id,
			Number:   number,
			Title:    e.Get("title").String(),
			IsFiller: e.Get("isFiller").Bool(),
			Provider: tag,
		})
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Number < episodes[j].Number
	})
	return episodes
}

// parseStreamData reads a watch response.  Sources that are not web urls are dropped.
func parseStreamData(body string) *domain.StreamData {
	data := &domain.StreamData{}

	for _, s := range arrayAt(body, "sources") {
		rawURL := strings.TrimSpace(s.Get("url").String())
		if !domain.IsWebURL(rawURL) {
			continue
		}

		isM3U8 := strings.Contains(strings.ToLower(rawURL), ".m3u8")
		if v := s.Get("isM3U8"); v.Exists() {
			isM3U8 = v.Bool()
		}

		data.Sources = append(data.Sources, domain.StreamSource{
			URL:     rawURL,
			IsM3U8:  isM3U8,
			Quality: s.Get("quality").String(),
		})
	}

	for _, s := range arrayAt(body, "subtitles") {
		subURL := strings.TrimSpace(s.Get("url").String())
		if !domain.IsWebURL(subURL) {
			continue
		}
		data.Subtitles = append(data.Subtitles, domain.Subtitle{
			URL:  subURL,
			Lang: s.Get("lang").String(),
		})
	}

	data.Intro = parseRange(gjson.Get(body, "intro"))
	data.Outro = parseRange(gjson.Get(body, "outro"))
	return data
}

func parseRange(r gjson.Result) *domain.TimeRange {
	if !r.IsObject() {
		return nil
	}
	start, end := r.Get("start").Float(), r.Get("end").Float()
	if end <= start {
		return nil
	}
	return &domain.TimeRange{Start: start, End: end}
}

// arrayAt returns the elements of the array at path, or nothing if the path holds anything else
func arrayAt(body, path string) []gjson.Result {
	r := gjson.Get(body, path)
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
