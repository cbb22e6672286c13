package planserver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

// DecodeRequest reads a Plan request.
func DecodeRequest(in *structpb.Struct) (planner.Request, error) {
	f := in.GetFields()
	var req planner.Request

	id, ok := f["catalog"].GetKind().(*structpb.Value_StringValue)
	if !ok || id.StringValue == "" {
		return req, errors.New("catalog must be a non-empty string")
	}
	req.CatalogID = id.StringValue

	var err error
	if req.Initial, err = decodeCounts(f, "initial"); err != nil {
		return req, err
	}
	if req.Goal, err = decodeCounts(f, "goal"); err != nil {
		return req, err
	}
	if v, ok := f["time_limit_ms"]; ok {
		ms, err := wholeNumber(v)
		if err != nil {
			return req, fmt.Errorf("time_limit_ms: %w", err)
		}
		req.TimeLimit = time.Duration(ms) * time.Millisecond
	}
	return req, nil
}

func decodeCounts(f map[string]*structpb.Value, key string) (map[string]int, error) {
	v, ok := f[key]
	if !ok {
		return nil, nil
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, fmt.Errorf("%s must be an object of item to quantity", key)
	}
	out := make(map[string]int, len(s.StructValue.GetFields()))
	for item, q := range s.StructValue.GetFields() {
		n, err := wholeNumber(q)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, item, err)
		}
		out[item] = n
	}
	return out, nil
}

func wholeNumber(v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errors.New("must be a number")
	}
	x := n.NumberValue
	if x < 0 || x != math.Trunc(x) || x > math.MaxInt32 {
		return 0, fmt.Errorf("must be a whole number >= 0, got %v", x)
	}
	return int(x), nil
}

// EncodeReport renders rep as a Plan response. Zero quantities are omitted
// from step states.
func EncodeReport(rep planner.Report) (*structpb.Struct, error) {
	steps := make([]any, len(rep.Steps))
	for i, s := range rep.Steps {
		state := make(map[string]any)
		for k, v := range s.State.Map() {
			if v != 0 {
				state[k] = v
			}
		}
		steps[i] = map[string]any{"action": s.Action, "state": state}
	}
	return structpb.NewStruct(map[string]any{
		"catalog":    rep.CatalogID,
		"outcome":    rep.Outcome.String(),
		"cost":       rep.Cost,
		"len":        rep.Len(),
		"steps":      steps,
		"expanded":   rep.Stats.Expanded,
		"generated":  rep.Stats.Generated,
		"pruned":     rep.Stats.Pruned,
		"elapsed_ms": rep.Stats.Elapsed.Milliseconds(),
	})
}
