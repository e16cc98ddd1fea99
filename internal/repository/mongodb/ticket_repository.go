package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

const ticketCounterID = "tickets"

type ticketRepository struct {
	client   *mongo.Client
	tickets  *mongo.Collection
	counters *mongo.Collection
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(client *mongo.Client, db *mongo.Database) repository.TicketRepository {
	return &ticketRepository{
		client:   client,
		tickets:  db.Collection(persistence.CollectionTickets),
		counters: db.Collection(persistence.CollectionCounters),
	}
}

// CreateWithAllocatedID runs in a snapshot transaction; the driver retries the
// callback on TransientTransactionError, which covers write conflicts on the
// counter document.
func (r *ticketRepository) CreateWithAllocatedID(ctx context.Context, ticket *domain.Ticket, allocate repository.IDAllocator) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	var created ticketDocument
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var counter counterDocument
		err := r.counters.FindOne(sc, bson.M{"_id": ticketCounterID}).Decode(&counter)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		next, id := allocate(domain.TicketCounter{Count: counter.Count, Period: counter.Period})
		if _, err := r.counters.UpdateOne(sc,
			bson.M{"_id": ticketCounterID},
			bson.M{"$set": bson.M{"count": next.Count, "period": next.Period}},
			options.Update().SetUpsert(true),
		); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		doc := toTicketDocument(ticket)
		doc.ID = id
		doc.CreatedAt = now
		doc.UpdatedAt = now
		doc.EmailHistory = []emailHistoryDocument{}
		if _, err := r.tickets.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		created = doc
		return nil, nil
	}, txOpts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
			return fmt.Errorf("%w: %v", repository.ErrTxAborted, err)
		}
		return err
	}

	ticket.ID = created.ID
	ticket.CreatedAt = created.CreatedAt
	ticket.UpdatedAt = created.UpdatedAt
	ticket.EmailHistory = []domain.EmailHistoryEntry{}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var doc ticketDocument
	err := r.tickets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter = filter.Normalize()
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.Country != nil {
		query["country"] = bson.M{"$regex": "^" + regexp.QuoteMeta(*filter.Country) + "$", "$options": "i"}
	}
	created := bson.M{}
	if filter.CreatedFrom != nil {
		created["$gte"] = *filter.CreatedFrom
	}
	if filter.CreatedTo != nil {
		created["$lte"] = *filter.CreatedTo
	}
	if len(created) > 0 {
		query["created_at"] = created
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	cursor, err := r.tickets.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []ticketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, len(docs))
	for i, d := range docs {
		result[i] = *d.toDomain()
	}
	return result, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, at time.Time) error {
	res, err := r.tickets.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status), "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) AppendEmailHistory(ctx context.Context, id string, expectedLen int, entry domain.EmailHistoryEntry, outcome domain.EmailOutcome) error {
	set := bson.M{
		"email_status": string(outcome.Status),
		"updated_at":   outcome.Recorded,
	}
	if outcome.SentAt != nil {
		set["last_email_sent"] = *outcome.SentAt
	}
	update := bson.M{
		"$push": bson.M{"email_history": toHistoryDocument(entry)},
		"$set":  set,
	}

	res, err := r.tickets.UpdateOne(ctx, bson.M{"_id": id, "email_history": bson.M{"$size": expectedLen}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := r.tickets.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func (r *ticketRepository) EnsureCounter(ctx context.Context) error {
	_, err := r.counters.UpdateOne(ctx,
		bson.M{"_id": ticketCounterID},
		bson.M{"$setOnInsert": bson.M{"count": int64(0), "period": ""}},
		options.Update().SetUpsert(true),
	)
	return err
}
