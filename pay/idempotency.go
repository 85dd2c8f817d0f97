package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore keeps one record per (user, Idempotency-Key).
type IdempotencyStore interface {
	// Claim inserts rec; it returns the existing record when the key is taken.
	Claim(ctx context.Context, rec *models.IdempotencyRecord) (*models.IdempotencyRecord, error)
	Finish(ctx context.Context, key string, status int, body []byte) error
	Release(ctx context.Context, key string) error
}

type MongoIdempotency struct {
	coll *mongo.Collection
}

func NewMongoIdempotency(coll *mongo.Collection) *MongoIdempotency {
	return &MongoIdempotency{coll: coll}
}

func (m *MongoIdempotency) Claim(ctx context.Context, rec *models.IdempotencyRecord) (*models.IdempotencyRecord, error) {
	_, err := m.coll.InsertOne(ctx, rec)
	if err == nil {
		return nil, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, apperr.FromMongo(err, "idempotency record")
	}
	var existing models.IdempotencyRecord
	if err := m.coll.FindOne(ctx, bson.M{"key": rec.Key}).Decode(&existing); err != nil {
		return nil, apperr.FromMongo(err, "idempotency record")
	}
	return &existing, nil
}

func (m *MongoIdempotency) Finish(ctx context.Context, key string, status int, body []byte) error {
	_, err := m.coll.UpdateOne(ctx, bson.M{"key": key},
		bson.M{"$set": bson.M{"status": status, "body": body, "done": true}})
	return apperr.FromMongo(err, "idempotency record")
}

func (m *MongoIdempotency) Release(ctx context.Context, key string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"key": key})
	return apperr.FromMongo(err, "idempotency record")
}

func computeRequestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records the status and body written by the wrapped handler.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

const maxIdempotentBody = 1 << 20

// Idempotent replays the stored response when a mutating request is retried
// with the same Idempotency-Key. Requests without the header pass through.
// Only successful responses are kept; a failed attempt frees the key.
func Idempotent(store IdempotencyStore, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}
		userID := middleware.PrincipalFrom(r).UserID

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
		if err != nil {
			utils.RespondWithAppError(w, apperr.Validation("failed to read request body"))
			return
		}
		if len(body) > maxIdempotentBody {
			utils.RespondWithAppError(w, apperr.Validation("request body exceeds %d bytes", maxIdempotentBody))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		now := time.Now().UTC()
		rec := &models.IdempotencyRecord{
			Key:         userID + ":" + key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: computeRequestHash(r, body, userID),
			CreatedAt:   now,
			ExpiresAt:   now.Add(idempotencyTTL),
		}

		existing, err := store.Claim(r.Context(), rec)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if existing != nil {
			switch {
			case existing.RequestHash != rec.RequestHash:
				utils.RespondWithAppError(w, apperr.Conflict("Idempotency-Key was used with a different request"))
			case !existing.Done:
				utils.RespondWithAppError(w, apperr.Conflict("a request with this Idempotency-Key is still in progress"))
			default:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				_, _ = w.Write(existing.Body)
			}
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next(cw, r, ps)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log := logging.For("idempotency").WithField("key", rec.Key)
		if cw.status >= 200 && cw.status < 300 {
			if err := store.Finish(ctx, rec.Key, cw.status, cw.buf.Bytes()); err != nil {
				log.WithError(err).Warn("response not stored")
			}
			return
		}
		if err := store.Release(ctx, rec.Key); err != nil {
			log.WithError(err).Warn("key not released")
		}
	}
}
