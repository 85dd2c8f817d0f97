package repo

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// MergePatch overlays patch onto existing and returns the merged document
// plus the $set document holding only the patched fields. JSON and BSON
// field names are the same for every model.
func MergePatch[T any, P interface {
	*T
	models.Doc
}](existing P, patch map[string]json.RawMessage, allowed []string) (P, bson.M, error) {
	if len(patch) == 0 {
		return nil, nil, apperr.Validation("no fields to update")
	}
	var rejected []string
	for k := range patch {
		if !slices.Contains(allowed, k) {
			rejected = append(rejected, k)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return nil, nil, apperr.Validation("fields cannot be updated: %s", strings.Join(rejected, ", "))
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "encode document")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "encode document")
	}
	for k, v := range patch {
		doc[k] = v
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "encode document")
	}
	var merged T
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindValidation, err, "invalid field value")
	}
	mp := P(&merged)
	// identity fields never change through a patch
	m, e := mp.Meta(), existing.Meta()
	m.ID, m.CafeID, m.CreatedAt, m.UpdatedAt = e.ID, e.CafeID, e.CreatedAt, e.UpdatedAt
	if err := utils.ValidateStruct(mp); err != nil {
		return nil, nil, err
	}

	full, err := bson.Marshal(mp)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "encode document")
	}
	var all bson.M
	if err := bson.Unmarshal(full, &all); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "encode document")
	}
	set := bson.M{}
	for k := range patch {
		if v, ok := all[k]; ok {
			set[k] = v
		} else {
			// omitempty field patched to its zero value
			set[k] = nil
		}
	}
	return mp, set, nil
}
