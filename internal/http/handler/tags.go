package handler

import (
	"context"
	"fmt"
	"strings"

	"commonthread/internal/domain/tag"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/validator"
)

type TagRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type TagResponse struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	CreatedBy string `json:"created_by"`
}

// tagKeys validates user supplied tags and builds their get-or-create keys.
func tagKeys(required, optional []TagRequest) ([]tag.Key, error) {
	if len(required) > maxTagsPerCollection || len(optional) > maxTagsPerCollection {
		return nil, apperrors.Validation(apperrors.CodeTagLimit, fmt.Sprintf(msgTooManyTagsFmt, maxTagsPerCollection))
	}

	keys := make([]tag.Key, 0, len(required)+len(optional))
	add := func(reqs []TagRequest, isRequired bool) error {
		for _, t := range reqs {
			name := strings.TrimSpace(t.Name)
			if err := validator.Tag(name, t.Value); err != nil {
				return invalidField(err)
			}
			keys = append(keys, tag.Key{
				Name:      name,
				Value:     t.Value,
				Required:  isRequired,
				CreatedBy: tag.CreatedByUser,
			})
		}
		return nil
	}

	if err := add(required, true); err != nil {
		return nil, err
	}
	if err := add(optional, false); err != nil {
		return nil, err
	}
	return keys, nil
}

// attachTags must run inside the caller's transaction.
func attachTags(ctx context.Context, tags TagRepository, keys []tag.Key, attach func(ctx context.Context, tagID int64) error) error {
	for _, k := range keys {
		t, err := tags.GetOrCreate(ctx, k)
		if err != nil {
			return err
		}
		if err := attach(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

func tagResponses(tags []tag.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagResponse{Name: t.Name, Value: t.Value, CreatedBy: string(t.CreatedBy)})
	}
	return out
}

// splitRequired separates required from optional tags.
func splitRequired(tags []tag.Tag) (required, optional []TagResponse) {
	var req, opt []tag.Tag
	for _, t := range tags {
		if t.Required {
			req = append(req, t)
		} else {
			opt = append(opt, t)
		}
	}
	return tagResponses(req), tagResponses(opt)
}
