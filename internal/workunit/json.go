package workunit

import (
	"encoding/json"
)

// knownFields are the JSON keys owned by this version of the schema. Any
// other key found on load is carried in the extra overlay and written back
// verbatim, so documents touched by newer tool versions round-trip
// unchanged.
var knownFields = map[string]bool{
	"id": true, "title": true, "description": true, "type": true,
	"status": true, "parent": true, "children": true, "blocks": true,
	"blockedReason": true, "estimate": true, "linkedFeatures": true,
	"stateHistory": true, "rules": true, "examples": true,
	"questions": true, "architectureNotes": true,
	"createdAt": true, "updatedAt": true,
}

// unitAlias breaks the MarshalJSON/UnmarshalJSON recursion.
type unitAlias WorkUnit

// UnmarshalJSON decodes the known schema and captures unknown keys.
func (u *WorkUnit) UnmarshalJSON(data []byte) error {
	var alias unitAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		alias.extra = raw
	}

	*u = WorkUnit(alias)
	return nil
}

// MarshalJSON writes the known schema merged with any preserved unknown
// keys. Known fields win on collision.
func (u WorkUnit) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(unitAlias(u))
	if err != nil {
		return nil, err
	}
	if len(u.extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range u.extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
