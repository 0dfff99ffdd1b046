package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"github.com/cortexmap/cortex/internal/acquisition/fetch"
)

// rssFeed and atomFeed are minimal decode targets; Cortex only needs
// item/entry links, not full feed metadata.
type rssFeed struct {
	Channel struct {
		Items []struct {
			Link string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomFeed struct {
	Entries []struct {
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

// FetchFeed fetches and parses an RSS or Atom feed at url, returning the
// linked item/entry URLs. Decode failures downgrade to "no signal" per
// spec.md §7's Parse error class — never fatal.
func FetchFeed(ctx context.Context, f *fetch.Fetcher, url string) []string {
	outcome := f.Fetch(ctx, url, false)
	if !outcome.OK() {
		return nil
	}
	body := outcome.Body

	var rss rssFeed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&rss); err == nil && len(rss.Channel.Items) > 0 {
		var links []string
		for _, item := range rss.Channel.Items {
			if l := strings.TrimSpace(item.Link); l != "" {
				links = append(links, l)
			}
		}
		return links
	}

	var atom atomFeed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&atom); err == nil {
		var links []string
		for _, entry := range atom.Entries {
			for _, l := range entry.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					if href := strings.TrimSpace(l.Href); href != "" {
						links = append(links, href)
					}
				}
			}
		}
		return links
	}

	return nil
}
