package handler

import (
	"context"
)

// curatorNames resolves display names for the given curator ids. Missing
// users are left out of the result.
func curatorNames(ctx context.Context, users UserLookup, ids []*int64) (map[int64]string, error) {
	seen := make(map[int64]bool)
	var want []int64
	for _, id := range ids {
		if id != nil && !seen[*id] {
			seen[*id] = true
			want = append(want, *id)
		}
	}
	if len(want) == 0 {
		return map[int64]string{}, nil
	}

	found, err := users.GetMany(ctx, want)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(found))
	for _, u := range found {
		names[u.ID] = displayName(u.Name, u.Username)
	}
	return names, nil
}

func displayName(name, username string) string {
	if name != "" {
		return name
	}
	return username
}

func nameFor(names map[int64]string, id *int64) *string {
	if id == nil {
		return nil
	}
	if n, ok := names[*id]; ok {
		return &n
	}
	return nil
}
