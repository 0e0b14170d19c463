package shared

// BaseAggregateRoot extends BaseEntity with the version column used for
// optimistic locking. Every state-changing aggregate method bumps the
// version; the repository's conditional update detects lost writes.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `json:"version"`
}

// IncrementVersion bumps the optimistic-lock version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates an aggregate base at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}
