package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

type pendingRepository struct {
	coll *mongo.Collection
}

// NewPendingNotificationRepository builds repository.
func NewPendingNotificationRepository(db *mongo.Database) repository.PendingNotificationRepository {
	return &pendingRepository{coll: db.Collection(persistence.CollectionPendingNotifications)}
}

func (r *pendingRepository) Create(ctx context.Context, n *domain.PendingNotification) error {
	_, err := r.coll.InsertOne(ctx, toPendingDocument(n))
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrConflict
	}
	return err
}

func (r *pendingRepository) GetByID(ctx context.Context, id string) (*domain.PendingNotification, error) {
	var doc pendingDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n := doc.toDomain()
	return &n, nil
}

func (r *pendingRepository) List(ctx context.Context, filter repository.PendingFilter) ([]domain.PendingNotification, error) {
	filter = filter.Normalize()
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.TicketID != nil {
		query["ticket_id"] = *filter.TicketID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []pendingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.PendingNotification, len(docs))
	for i, d := range docs {
		result[i] = d.toDomain()
	}
	return result, nil
}

func (r *pendingRepository) UpdateStatus(ctx context.Context, id string, status domain.PendingNotificationStatus, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status), "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pendingRepository) MarkSentForTicket(ctx context.Context, ticketID string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"ticket_id": ticketID, "status": string(domain.PendingStatusPending)},
		bson.M{"$set": bson.M{"status": string(domain.PendingStatusSentViaEmail), "updated_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *pendingRepository) CountByStatus(ctx context.Context, status domain.PendingNotificationStatus) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"status": string(status)})
}
