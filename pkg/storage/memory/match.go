package memory

import (
	"strings"
	"time"

	"github.com/goliatone/go-documents/pkg/storage"
)

func matchWhere(row storage.Entry, where map[string]any) bool {
	for column, expected := range where {
		value := row[column]
		switch cond := expected.(type) {
		case storage.Cond:
			if !matchCond(value, cond) {
				return false
			}
		case nil:
			if value != nil {
				return false
			}
		default:
			if !equalValue(value, expected) {
				return false
			}
		}
	}
	return true
}

func matchCond(value any, cond storage.Cond) bool {
	switch cond.Op {
	case storage.OpNull:
		return value == nil
	case storage.OpNotNull:
		return value != nil
	case storage.OpIn:
		for _, candidate := range cond.Values {
			if equalValue(value, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if aID, ok := storage.AsID(a); ok {
		if bID, ok := storage.AsID(b); ok {
			return aID == bID
		}
	}
	if aTime, ok := asTime(a); ok {
		if bTime, ok := asTime(b); ok {
			return aTime.Equal(bTime)
		}
	}
	return a == b
}

func compareValues(a, b any) int {
	if aID, ok := storage.AsID(a); ok {
		if bID, ok := storage.AsID(b); ok {
			switch {
			case aID < bID:
				return -1
			case aID > bID:
				return 1
			}
			return 0
		}
	}
	if aTime, ok := asTime(a); ok {
		if bTime, ok := asTime(b); ok {
			switch {
			case aTime.Before(bTime):
				return -1
			case aTime.After(bTime):
				return 1
			}
			return 0
		}
	}
	aStr, aOK := a.(string)
	bStr, bOK := b.(string)
	if aOK && bOK {
		return strings.Compare(aStr, bStr)
	}
	return 0
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	}
	return time.Time{}, false
}
