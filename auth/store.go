package auth

import (
	"context"
	"strings"
	"time"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// NewAccount is what callers supply to open a login.
type NewAccount struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Role     string `json:"-"`
	CafeID   string `json:"-"`
}

// UserStore is the single identity collection.
type UserStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserStore(coll *mongo.Collection) *UserStore {
	return &UserStore{coll: coll, now: time.Now}
}

func (s *UserStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, apperr.FromMongo(err, "user")
	}
	return &u, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.coll.FindOne(ctx, bson.M{"username": strings.TrimSpace(username)}).Decode(&u)
	if err != nil {
		return nil, apperr.FromMongo(err, "user")
	}
	return &u, nil
}

// Provision hashes the password and inserts the user. A taken username is a conflict.
func (s *UserStore) Provision(ctx context.Context, a NewAccount) (*models.User, error) {
	u, err := newUser(a, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("username %s is already taken", u.Username)
		}
		return nil, apperr.FromMongo(err, "user")
	}
	return u, nil
}

func (s *UserStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": s.now().UTC()}})
	if err != nil {
		return apperr.FromMongo(err, "user")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func newUser(a NewAccount, now time.Time) (*models.User, error) {
	if err := utils.ValidateStruct(a); err != nil {
		return nil, err
	}
	if a.Role == "" {
		a.Role = models.RoleCustomer
	}
	if models.IsStaff(a.Role) && a.CafeID == "" && a.Role != models.RoleManager {
		return nil, apperr.Validation("%s must have a cafe_id", a.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not process password")
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = strings.TrimSpace(a.Username)
	}
	return &models.User{
		ID:           utils.GetUUID(),
		Username:     strings.TrimSpace(a.Username),
		Email:        strings.ToLower(strings.TrimSpace(a.Email)),
		Phone:        strings.TrimSpace(a.Phone),
		PasswordHash: string(hash),
		Name:         name,
		Role:         a.Role,
		CafeID:       a.CafeID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func checkPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
