package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	DiffLabelNew     = "new"
	DiffLabelChanged = "changed"
	DiffLabelRemoved = "removed"
)

var hundred = decimal.NewFromInt(100)

// FieldDiff describes how one numeric field moved between two versions.
type FieldDiff struct {
	Field string           `json:"field"`
	Old   *decimal.Decimal `json:"old,omitempty"`
	New   *decimal.Decimal `json:"new,omitempty"`
	// PctChange is (new-old)/old*100 rounded to two places. Absent when the
	// field is new or the old value was zero.
	PctChange *decimal.Decimal `json:"pct_change,omitempty"`
	Label     string           `json:"label"`
}

// Diff computes per-field movements between two value maps. Unchanged fields
// are omitted. Field order is deterministic.
func Diff(oldValues, newValues map[string]decimal.Decimal) []FieldDiff {
	keys := make([]string, 0, len(oldValues)+len(newValues))
	seen := make(map[string]struct{}, len(oldValues)+len(newValues))
	for key := range oldValues {
		keys = append(keys, key)
		seen[key] = struct{}{}
	}
	for key := range newValues {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	diffs := make([]FieldDiff, 0, len(keys))
	for _, key := range keys {
		oldVal, hasOld := oldValues[key]
		newVal, hasNew := newValues[key]

		switch {
		case !hasOld:
			value := newVal
			diffs = append(diffs, FieldDiff{
				Field: key,
				New:   &value,
				Label: DiffLabelNew,
			})
		case !hasNew:
			value := oldVal
			diffs = append(diffs, FieldDiff{
				Field: key,
				Old:   &value,
				Label: DiffLabelRemoved,
			})
		case oldVal.Equal(newVal):
			continue
		default:
			before, after := oldVal, newVal
			diff := FieldDiff{
				Field: key,
				Old:   &before,
				New:   &after,
				Label: DiffLabelChanged,
			}
			if !before.IsZero() {
				pct := after.Sub(before).Div(before).Mul(hundred).Round(2)
				diff.PctChange = &pct
			}
			diffs = append(diffs, diff)
		}
	}
	return diffs
}
