package ml

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	backendTagger    = "tagger"
	bearerAuthScheme = "Bearer"
	minEntityScore   = 0.5
)

// RemoteTagger calls a Hugging Face style token-classification endpoint
// with aggregation enabled and keeps entities above a confidence floor.
type RemoteTagger struct {
	api apiClient
}

func NewRemoteTagger(endpoint, token string, timeout time.Duration) *RemoteTagger {
	return &RemoteTagger{api: newAPIClient(backendTagger, endpoint, bearerAuthScheme, token, timeout)}
}

type nerRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters map[string]string `json:"parameters"`
}

type nerEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
}

func (t *RemoteTagger) ExtractTags(ctx context.Context, text string) ([]Tag, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}

	var entities []nerEntity
	req := nerRequest{Inputs: text, Parameters: map[string]string{"aggregation_strategy": "simple"}}
	if err := t.api.postJSON(ctx, req, &entities); err != nil {
		return nil, err
	}

	seen := make(map[Tag]bool)
	var tags []Tag
	for _, e := range entities {
		group := e.EntityGroup
		if group == "" {
			group = e.Entity
		}
		word := strings.TrimSpace(e.Word)
		if group == "" || word == "" || e.Score < minEntityScore {
			continue
		}
		tag := Tag{Name: group, Label: word}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
