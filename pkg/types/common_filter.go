package types

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq  CommonFilterOperator = "eq"
	CommonFilterOperatorLt  CommonFilterOperator = "lt"
	CommonFilterOperatorLte CommonFilterOperator = "lte"
	CommonFilterOperatorGte CommonFilterOperator = "gte"
	CommonFilterOperatorIn  CommonFilterOperator = "in"
	// CommonFilterOperatorContains is a case-insensitive substring match (postgres ILIKE).
	CommonFilterOperatorContains CommonFilterOperator = "contains"
)

// CommonFilter is one predicate on a column. Filters without values build nothing.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		return
	}

	value := f.Values[0]
	var expr clause.Expression
	switch f.Operator {
	case CommonFilterOperatorEq:
		expr = clause.Eq{Column: f.Field, Value: value}
	case CommonFilterOperatorLt:
		expr = clause.Lt{Column: f.Field, Value: value}
	case CommonFilterOperatorLte:
		expr = clause.Lte{Column: f.Field, Value: value}
	case CommonFilterOperatorGte:
		expr = clause.Gte{Column: f.Field, Value: value}
	case CommonFilterOperatorIn:
		expr = clause.IN{Column: f.Field, Values: f.Values}
	case CommonFilterOperatorContains:
		pattern := "%" + likeEscaper.Replace(fmt.Sprint(value)) + "%"
		expr = clause.Expr{SQL: "? ILIKE ?", Vars: []any{clause.Column{Name: f.Field}, pattern}}
	default:
		return
	}
	expr.Build(builder)
}
