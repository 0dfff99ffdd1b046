// Package vocabulary ships the frozen topic word list used by the
// Feature Encoder's 16-dim TF-IDF block (spec.md §9 Open Question (a)).
// The list is embedded at build time so the encoder's output is
// reproducible across installs without a runtime corpus-fit step.
package vocabulary

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed topics.txt
var topicsAsset string

// Topic is one entry in the fixed 16-topic TF-IDF vocabulary, in the
// order that fills DimTopicTFIDFStart..DimTopicTFIDFEnd.
type Topic struct {
	Name  string
	IDF   float32
	Words []string
}

// Topics is parsed once at package init from the embedded asset.
var Topics = mustParse(topicsAsset)

func mustParse(asset string) []Topic {
	var topics []Topic
	for _, line := range strings.Split(asset, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			continue
		}
		idf, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			continue
		}
		words := strings.Split(fields[2], ",")
		topics = append(topics, Topic{Name: fields[0], IDF: float32(idf), Words: words})
	}
	return topics
}
