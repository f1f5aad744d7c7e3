package hls

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/grafov/m3u8"
)

// ErrNoSegments is returned for a media playlist without any segment
var ErrNoSegments = errors.New("playlist has no segments")

// ParseError is a manifest that could not be decoded
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse playlist %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Variant is one rendition of a master playlist
type Variant struct {
	URL        string
	Bandwidth  uint32
	Resolution string
}

// Label describes the variant for display, such as 1280x720 or 2400kbps
func (v Variant) Label() string {
	if v.Resolution != "" {
		return v.Resolution
	}
	if v.Bandwidth > 0 {
		return fmt.Sprintf("%dkbps", v.Bandwidth/1000)
	}
	return ""
}

// decodePlaylist parses body as either a master or a media playlist
func decodePlaylist(base string, body []byte) (*m3u8.MasterPlaylist, *m3u8.MediaPlaylist, error) {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, nil, &ParseError{URL: base, Err: err}
	}

	switch listType {
	case m3u8.MASTER:
		return playlist.(*m3u8.MasterPlaylist), nil, nil
	case m3u8.MEDIA:
		return nil, playlist.(*m3u8.MediaPlaylist), nil
	default:
		return nil, nil, &ParseError{URL: base, Err: fmt.Errorf("unknown playlist type")}
	}
}

// variants lists the renditions of a master playlist with absolute urls, highest bandwidth first
func variants(base string, master *m3u8.MasterPlaylist) ([]Variant, error) {
	var out []Variant
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		abs, err := resolveURL(base, v.URI)
		if err != nil {
			return nil, err
		}
		out = append(out, Variant{URL: abs, Bandwidth: v.Bandwidth, Resolution: v.Resolution})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bandwidth > out[j].Bandwidth
	})
	return out, nil
}

// pickVariant returns the highest bandwidth variant not above maxBitrate.  If every variant is above the cap the
// lowest one is used.  A maxBitrate of 0 means no cap.  vs must be sorted highest first.
func pickVariant(vs []Variant, maxBitrate int) (Variant, bool) {
	if len(vs) == 0 {
		return Variant{}, false
	}
	if maxBitrate <= 0 {
		return vs[0], true
	}
	for _, v := range vs {
		if int64(v.Bandwidth) <= int64(maxBitrate) {
			return v, true
		}
	}
	return vs[len(vs)-1], true
}

// segmentURLs returns the absolute urls of the segments of a media playlist
func segmentURLs(base string, media *m3u8.MediaPlaylist) ([]string, error) {
	var out []string
	for _, seg := range media.Segments {
		// The segment slice is a ring buffer with nil entries past the end
		if seg == nil {
			break
		}
		abs, err := resolveURL(base, seg.URI)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	if len(out) == 0 {
		return nil, ErrNoSegments
	}
	return out, nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid playlist url %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid playlist reference %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
