package query

import (
	"fmt"

	"github.com/menmos/menmosd/pkg/bitvector"
)

// Resolver resolves expression leaves to bitvectors. An adapter over the
// metadata and document stores (components D and C) satisfies it; the
// evaluator never talks to a kv.Tree directly.
type Resolver interface {
	LoadTag(tag string) (*bitvector.Bitvector, error)
	LoadKeyValue(key, value string) (*bitvector.Bitvector, error)
	LoadKey(key string) (*bitvector.Bitvector, error)
	Universe() (*bitvector.Bitvector, error)
}

// Evaluate walks expr, resolving each leaf against r and combining
// results with the bigger-accumulator AND/OR strategy and
// NOT-via-universe-complement described in §4.G.
func Evaluate(expr Expression, r Resolver) (*bitvector.Bitvector, error) {
	switch e := expr.(type) {
	case Tag:
		return r.LoadTag(e.Value)
	case KeyValue:
		return r.LoadKeyValue(e.Key, e.Value)
	case HasKey:
		return r.LoadKey(e.Key)
	case Parent:
		return r.LoadKeyValue(parentKey, e.ID)
	case Empty:
		return r.Universe()
	case And:
		left, err := Evaluate(e.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(e.Right, r)
		if err != nil {
			return nil, err
		}
		return bitvector.And(left, right), nil
	case Or:
		left, err := Evaluate(e.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(e.Right, r)
		if err != nil {
			return nil, err
		}
		return bitvector.Or(left, right), nil
	case Not:
		inner, err := Evaluate(e.Inner, r)
		if err != nil {
			return nil, err
		}
		universe, err := r.Universe()
		if err != nil {
			return nil, err
		}
		return bitvector.Not(inner, universe), nil
	default:
		return nil, fmt.Errorf("query: unhandled expression type %T", expr)
	}
}
