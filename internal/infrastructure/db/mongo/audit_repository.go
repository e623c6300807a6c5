package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/excavator/rental-api/internal/core/domain"
)

const (
	auditCollection = "access_audit"
	maxAuditPage    = 500
)

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type mongoDecision struct {
	UserID       string    `bson:"user_id,omitempty"`
	Email        string    `bson:"email,omitempty"`
	Role         string    `bson:"role,omitempty"`
	RequiredRole string    `bson:"required_role"`
	IP           string    `bson:"ip"`
	Operation    string    `bson:"operation"`
	Allowed      bool      `bson:"allowed"`
	Reason       string    `bson:"reason,omitempty"`
	RequestID    string    `bson:"request_id,omitempty"`
	Timestamp    time.Time `bson:"timestamp"`
}

// EnsureIndexes creates the timestamp index used by ListRecent.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("timestamp_desc"),
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

// InsertDecision persists a decision to the access_audit collection.
func (r *AuditRepository) InsertDecision(ctx context.Context, d *domain.AccessDecision) error {
	doc := mongoDecision{
		UserID:       d.UserID,
		Email:        d.Email,
		Role:         string(d.Role),
		RequiredRole: string(d.RequiredRole),
		IP:           d.IP,
		Operation:    d.Operation,
		Allowed:      d.Allowed,
		Reason:       d.Reason,
		RequestID:    d.RequestID,
		Timestamp:    d.Timestamp.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit decision: %w", err)
	}
	return nil
}

// ListRecent returns up to limit decisions, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AccessDecision, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit decisions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoDecision
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit decisions: %w", err)
	}

	out := make([]*domain.AccessDecision, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.AccessDecision{
			UserID:       d.UserID,
			Email:        d.Email,
			Role:         domain.Role(d.Role),
			RequiredRole: domain.Role(d.RequiredRole),
			IP:           d.IP,
			Operation:    d.Operation,
			Allowed:      d.Allowed,
			Reason:       d.Reason,
			RequestID:    d.RequestID,
			Timestamp:    d.Timestamp.UTC(),
		})
	}
	return out, nil
}
