package ledger

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"cafehub/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Each pair below is one conditional single-document update: the filter
// only matches while the pool entry can still satisfy the claim.

func entry(cafeID, id string) bson.M {
	return bson.M{"_id": id, "cafe_id": cafeID}
}

func TableReserve(cafeID, id string, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, id)
	f["is_active"] = true
	f["status"] = "available"
	return f, bson.M{"$set": bson.M{"status": "reserved", "updated_at": now}}
}

func TableRelease(cafeID, id string, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, id)
	f["status"] = "reserved"
	return f, bson.M{"$set": bson.M{"status": "available", "updated_at": now}}
}

func DeskReserve(cafeID, id string, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, id)
	f["is_active"] = true
	f["is_available"] = true
	return f, bson.M{"$set": bson.M{"is_available": false, "updated_at": now}}
}

func DeskRelease(cafeID, id string, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, id)
	f["is_available"] = false
	return f, bson.M{"$set": bson.M{"is_available": true, "updated_at": now}}
}

func SeatsReserve(cafeID, sessionID string, seats []string, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, sessionID)
	f["is_active"] = true
	f["occupied_seats"] = bson.M{"$nin": seats}
	f["available_seats"] = bson.M{"$gte": len(seats)}
	return f, bson.M{
		"$addToSet": bson.M{"occupied_seats": bson.M{"$each": seats}},
		"$inc":      bson.M{"available_seats": -len(seats)},
		"$set":      bson.M{"updated_at": now},
	}
}

// SeatsRelease frees the seats and gives back one unit per seat that was
// actually occupied, never exceeding total_seats.
func SeatsRelease(cafeID, sessionID string, seats []string, now time.Time) (bson.M, mongo.Pipeline) {
	occupied := bson.D{{Key: "$ifNull", Value: bson.A{"$occupied_seats", bson.A{}}}}
	// labels are data, never field paths or variables
	labels := bson.D{{Key: "$literal", Value: seats}}
	freed := bson.D{{Key: "$size", Value: bson.D{{Key: "$setIntersection", Value: bson.A{occupied, labels}}}}}
	return entry(cafeID, sessionID), mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "occupied_seats", Value: bson.D{{Key: "$setDifference", Value: bson.A{occupied, labels}}}},
			{Key: "available_seats", Value: clamp("$available_seats", freed, "$total_seats")},
			{Key: "updated_at", Value: now},
		}}},
	}
}

func SpotsReserve(cafeID, sessionID string, n int, now time.Time) (bson.M, bson.M) {
	f := entry(cafeID, sessionID)
	f["is_active"] = true
	f["available_spots"] = bson.M{"$gte": n}
	return f, bson.M{
		"$inc": bson.M{"available_spots": -n},
		"$set": bson.M{"updated_at": now},
	}
}

func SpotsRelease(cafeID, sessionID string, n int, now time.Time) (bson.M, mongo.Pipeline) {
	return entry(cafeID, sessionID), mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "available_spots", Value: clamp("$available_spots", n, "$total_spots")},
			{Key: "updated_at", Value: now},
		}}},
	}
}

// StockTake decrements stock by q when the product tracks stock and has
// enough; products that do not track stock always match and stay unchanged.
func StockTake(cafeID, productID string, q int, now time.Time) (bson.M, mongo.Pipeline) {
	f := entry(cafeID, productID)
	f["is_active"] = true
	f["$or"] = bson.A{
		bson.M{"track_stock": bson.M{"$ne": true}},
		bson.M{"stock": bson.M{"$gte": q}},
	}
	return f, stockPipeline(-q, now)
}

func StockReturn(cafeID, productID string, q int, now time.Time) (bson.M, mongo.Pipeline) {
	return entry(cafeID, productID), stockPipeline(q, now)
}

func stockPipeline(delta int, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$track_stock", true}}},
				bson.D{{Key: "$add", Value: bson.A{"$stock", delta}}},
				"$stock",
			}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

// clamp builds min(ceiling, max(0, field + delta)).
func clamp(field string, delta any, ceiling string) bson.D {
	return bson.D{{Key: "$min", Value: bson.A{
		ceiling,
		bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{field, delta}}}}}},
	}}}
}

// NormalizeSeats trims and upper-cases labels. Labels are letters, digits
// and dashes only; empty or repeated ones are rejected.
func NormalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, apperr.Validation("at least one seat is required")
	}
	seen := make(map[string]bool, len(seats))
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return nil, apperr.Validation("seat labels must not be empty")
		}
		if !seatLabel(s) {
			return nil, apperr.Validation("seat label %q may only hold letters, digits and dashes", s)
		}
		if seen[s] {
			return nil, apperr.Validation("seat %s is listed twice", s)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func seatLabel(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func intersect(have, want []string) []string {
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[s] = true
	}
	var out []string
	for _, s := range want {
		if set[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
