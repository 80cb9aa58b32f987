package quota

import "fmt"

// OpKind identifies a remote API operation for cost accounting.
type OpKind string

const (
	OpRead   OpKind = "read"
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpInsert OpKind = "insert"
	OpDelete OpKind = "delete"
	OpSearch OpKind = "search"
)

// unitCosts is the remote API's fixed unit price per operation kind.
// The ledger never computes costs itself; callers look them up here and
// pass the value through.
var unitCosts = map[OpKind]int{
	OpRead:   1,
	OpCreate: 50,
	OpUpdate: 50,
	OpInsert: 50,
	OpDelete: 50,
	OpSearch: 100,
}

// Cost returns the unit cost of an operation kind. An unknown kind is a
// programming error, not a runtime condition.
func Cost(op OpKind) int {
	cost, ok := unitCosts[op]
	if !ok {
		panic(fmt.Sprintf("quota: unknown operation kind %q", op))
	}
	return cost
}
