package tag

// Creator records whether a person or the tagging pipeline attached a tag.
type Creator string

const (
	CreatedByUser     Creator = "user"
	CreatedByComputer Creator = "computer"
)

type Tag struct {
	ID        int64
	Name      string
	Value     string
	Required  bool
	CreatedBy Creator
}

// Key identifies a tag for get-or-create.
type Key struct {
	Name      string
	Value     string
	Required  bool
	CreatedBy Creator
}

func (t Tag) Key() Key {
	return Key{Name: t.Name, Value: t.Value, Required: t.Required, CreatedBy: t.CreatedBy}
}
