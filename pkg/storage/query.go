package storage

import "encoding/json"

// Query shapes a FindMany/FindOne/Delete/Count call.
type Query struct {
	Select   []string
	Where    map[string]any
	Populate Populate
	// OrderBy lists field names; a "-" prefix sorts descending. Rows are
	// ordered by id when empty.
	OrderBy []string
	Limit   int
	Offset  int
}

// Populate describes which linked structures to materialize on read.
type Populate map[string]*PopulateNode

// PopulateNode configures population of a single attribute. A nil node
// populates with defaults. On maps dynamic-zone component UIDs to their own
// nodes, since each instance in a zone may be a different schema.
type PopulateNode struct {
	Select   []string
	Populate Populate
	On       map[string]*PopulateNode
}

// Cond is a non-equality predicate usable as a Where value.
type Cond struct {
	Op     string
	Values []any
}

const (
	OpIn      = "in"
	OpNull    = "null"
	OpNotNull = "notnull"
)

// In matches rows whose column equals any of values.
func In(values ...any) Cond {
	return Cond{Op: OpIn, Values: values}
}

// InIDs is In over an id slice.
func InIDs(ids []int64) Cond {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return In(values...)
}

// IsNull matches rows whose column is null.
func IsNull() Cond {
	return Cond{Op: OpNull}
}

// IsNotNull matches rows whose column is not null.
func IsNotNull() Cond {
	return Cond{Op: OpNotNull}
}

// AsID normalizes the numeric encodings an id can arrive in (int64 from
// storage, float64 or json.Number from decoded payloads).
func AsID(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, true
		}
	}
	return 0, false
}
