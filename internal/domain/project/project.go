package project

import "time"

type Project struct {
	ID        int64
	OrgID     int64
	Name      string
	CuratorID *int64
	Date      time.Time
	Insight   *string
}

type CreateProjectInput struct {
	OrgID     int64
	Name      string
	CuratorID *int64
	Date      time.Time
}

type UpdateProjectInput struct {
	Name      *string
	CuratorID *int64
	Date      *time.Time
}

// Listing is a project with its story count.
type Listing struct {
	Project    Project
	StoryCount int
}
