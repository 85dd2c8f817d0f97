// Package repo is the generic café-scoped document repository. Every query
// and write carries the cafe_id of the partition it acts on.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options describes one resource kind.
type Options struct {
	// Kind names the resource in error messages, e.g. "table".
	Kind string
	// Updatable lists the fields a partial update may set.
	Updatable []string
	// SoftDelete flips is_active instead of removing the row.
	SoftDelete bool
}

// Repository stores documents of type T; P is *T.
type Repository[T any, P interface {
	*T
	models.Doc
}] struct {
	coll *mongo.Collection
	opts Options
	now  func() time.Time
}

func New[T any, P interface {
	*T
	models.Doc
}](coll *mongo.Collection, opts Options) *Repository[T, P] {
	return &Repository[T, P]{coll: coll, opts: opts, now: time.Now}
}

func (r *Repository[T, P]) Kind() string { return r.opts.Kind }

func (r *Repository[T, P]) Collection() *mongo.Collection { return r.coll }

func scoped(cafeID, id string) bson.M {
	return bson.M{"_id": id, "cafe_id": cafeID}
}

// Create stamps id, café, timestamps and is_active, then inserts doc.
func (r *Repository[T, P]) Create(ctx context.Context, cafeID string, doc P) (P, error) {
	m := doc.Meta()
	now := r.now().UTC()
	if m.ID == "" {
		m.ID = utils.GetUUID()
	}
	m.CafeID = cafeID
	m.IsActive = true
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := utils.ValidateStruct(doc); err != nil {
		return nil, err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, apperr.FromMongo(err, r.opts.Kind)
	}
	return doc, nil
}

// Get returns the row or a not-found error. Soft-deleted rows are not found.
func (r *Repository[T, P]) Get(ctx context.Context, cafeID, id string) (P, error) {
	filter := scoped(cafeID, id)
	if r.opts.SoftDelete {
		filter["is_active"] = true
	}
	var out T
	if err := r.coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, apperr.FromMongo(err, r.opts.Kind)
	}
	return &out, nil
}

type ListOptions struct {
	Filter          bson.M
	IncludeInactive bool
	Skip            int64
	Limit           int64
	Sort            bson.D
}

// List returns the café's rows, newest first unless Sort is given.
func (r *Repository[T, P]) List(ctx context.Context, cafeID string, lo ListOptions) ([]T, error) {
	filter := bson.M{}
	for k, v := range lo.Filter {
		filter[k] = v
	}
	filter["cafe_id"] = cafeID
	if !lo.IncludeInactive {
		filter["is_active"] = true
	}
	return r.find(ctx, filter, lo)
}

// FindAll runs an unscoped query; only the café registry uses it.
func (r *Repository[T, P]) FindAll(ctx context.Context, filter bson.M, lo ListOptions) ([]T, error) {
	return r.find(ctx, filter, lo)
}

func (r *Repository[T, P]) find(ctx context.Context, filter bson.M, lo ListOptions) ([]T, error) {
	sort := lo.Sort
	if sort == nil {
		sort = bson.D{{Key: "created_at", Value: -1}}
	}
	fo := options.Find().SetSort(sort)
	if lo.Skip > 0 {
		fo.SetSkip(lo.Skip)
	}
	if lo.Limit > 0 {
		fo.SetLimit(lo.Limit)
	}
	cur, err := r.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, apperr.FromMongo(err, r.opts.Kind)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.FromMongo(err, r.opts.Kind)
	}
	return out, nil
}

// Update applies a partial JSON patch. Only Updatable fields are accepted and
// the merged document must validate.
func (r *Repository[T, P]) Update(ctx context.Context, cafeID, id string, patch map[string]json.RawMessage) (P, error) {
	existing, err := r.Get(ctx, cafeID, id)
	if err != nil {
		return nil, err
	}
	merged, set, err := MergePatch[T, P](existing, patch, r.opts.Updatable)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	set["updated_at"] = now
	merged.Meta().UpdatedAt = now

	filter := scoped(cafeID, id)
	if r.opts.SoftDelete {
		filter["is_active"] = true
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, apperr.FromMongo(err, r.opts.Kind)
	}
	if res.MatchedCount == 0 {
		return nil, apperr.NotFound("%s not found", r.opts.Kind)
	}
	return merged, nil
}

// SetFields writes server-computed fields, bypassing the update whitelist.
func (r *Repository[T, P]) SetFields(ctx context.Context, cafeID, id string, set bson.M) error {
	upd := bson.M{}
	for k, v := range set {
		upd[k] = v
	}
	upd["updated_at"] = r.now().UTC()
	res, err := r.coll.UpdateOne(ctx, scoped(cafeID, id), bson.M{"$set": upd})
	if err != nil {
		return apperr.FromMongo(err, r.opts.Kind)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("%s not found", r.opts.Kind)
	}
	return nil
}

// Delete soft- or hard-deletes according to the kind's options.
func (r *Repository[T, P]) Delete(ctx context.Context, cafeID, id string) error {
	if r.opts.SoftDelete {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": id, "cafe_id": cafeID, "is_active": true},
			bson.M{"$set": bson.M{"is_active": false, "updated_at": r.now().UTC()}})
		if err != nil {
			return apperr.FromMongo(err, r.opts.Kind)
		}
		if res.MatchedCount == 0 {
			return apperr.NotFound("%s not found", r.opts.Kind)
		}
		return nil
	}
	res, err := r.coll.DeleteOne(ctx, scoped(cafeID, id))
	if err != nil {
		return apperr.FromMongo(err, r.opts.Kind)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("%s not found", r.opts.Kind)
	}
	return nil
}
