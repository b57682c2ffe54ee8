package rbac

import "fmt"

// ResourceKind names the level of the authorization chain a request targets.
type ResourceKind int

const (
	KindNone ResourceKind = iota
	KindOrg
	KindProject
	KindStory
	// KindSelfUser targets the caller's own account.
	KindSelfUser
)

func (k ResourceKind) String() string {
	switch k {
	case KindOrg:
		return "org"
	case KindProject:
		return "project"
	case KindStory:
		return "story"
	case KindSelfUser:
		return "user"
	default:
		return "none"
	}
}

// Resource is the explicit descriptor a route hands to the resolver.
type Resource struct {
	Kind ResourceKind
	ID   int64
}

func None() Resource { return Resource{Kind: KindNone} }

func Org(id int64) Resource { return Resource{Kind: KindOrg, ID: id} }

func Project(id int64) Resource { return Resource{Kind: KindProject, ID: id} }

func Story(id int64) Resource { return Resource{Kind: KindStory, ID: id} }

func SelfUser(id int64) Resource { return Resource{Kind: KindSelfUser, ID: id} }

func (r Resource) IsNone() bool { return r.Kind == KindNone }

func (r Resource) String() string {
	if r.Kind == KindNone {
		return r.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", r.Kind, r.ID)
}
