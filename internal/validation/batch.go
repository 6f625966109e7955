package validation

import (
	"encoding/json"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/farmstand-app/orderflow/internal/monitoring"
)

// MapRecords validates a list of raw records one by one, skipping elements
// that fail instead of aborting the batch. Each skipped record is reported to
// the monitor; the output may therefore be shorter than the input and callers
// must not assume a 1:1 correspondence.
func MapRecords[T any](mon *monitoring.Monitor, v *validatorv10.Validate, raws []map[string]any, opts Options) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		oc := ValidateRecord[T](mon, v, raw, opts)
		if !oc.Success {
			mon.RecordDataQualityIssue(opts.Scope, fmt.Sprintf("record %d skipped: %d error(s)", i, len(oc.Errors)))
			continue
		}
		out = append(out, *oc.Data)
	}
	return out
}

// decodeRecord converts a JSON-like map into T via an encode/decode round
// trip, so json tags on T drive the field mapping.
func decodeRecord[T any](rec map[string]any) (T, error) {
	var in T
	buf, err := json.Marshal(rec)
	if err != nil {
		return in, err
	}
	if err := json.Unmarshal(buf, &in); err != nil {
		return in, err
	}
	return in, nil
}

// cloneRecord deep-copies a record so validation never mutates caller state.
func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneRecord(tv)
	case []any:
		out := make([]any, len(tv))
		for i, el := range tv {
			out[i] = cloneValue(el)
		}
		return out
	}
	return v
}
