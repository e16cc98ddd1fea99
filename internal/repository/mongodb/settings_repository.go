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

const emailSettingsID = "email"

type settingsRepository struct {
	coll *mongo.Collection
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(db *mongo.Database) repository.SettingsRepository {
	return &settingsRepository{coll: db.Collection(persistence.CollectionSettings)}
}

func (r *settingsRepository) GetRoutingSettings(ctx context.Context) (*domain.RoutingSettings, error) {
	var doc settingsDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": emailSettingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	settings := &domain.RoutingSettings{
		ManagerEmail:    doc.ManagerEmail,
		ForwardingEmail: doc.ForwardingEmail,
		Countries:       make([]domain.CountryRoute, len(doc.Countries)),
		UpdatedAt:       doc.UpdatedAt,
	}
	for i, c := range doc.Countries {
		settings.Countries[i] = domain.CountryRoute(c)
	}
	return settings, nil
}

func (r *settingsRepository) SaveRoutingSettings(ctx context.Context, settings *domain.RoutingSettings) error {
	doc := settingsDocument{
		ID:              emailSettingsID,
		ManagerEmail:    settings.ManagerEmail,
		ForwardingEmail: settings.ForwardingEmail,
		Countries:       make([]countryRouteDocument, len(settings.Countries)),
		UpdatedAt:       settings.UpdatedAt,
	}
	for i, c := range settings.Countries {
		doc.Countries[i] = countryRouteDocument(c)
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": emailSettingsID}, doc, options.Replace().SetUpsert(true))
	return err
}

type countryManagerRepository struct {
	coll *mongo.Collection
}

// NewCountryManagerRepository builds repository.
func NewCountryManagerRepository(db *mongo.Database) repository.CountryManagerRepository {
	return &countryManagerRepository{coll: db.Collection(persistence.CollectionCountryManagers)}
}

func (r *countryManagerRepository) Get(ctx context.Context, country string) (*domain.CountryManager, error) {
	var doc countryManagerDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": country}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m := domain.CountryManager(doc)
	return &m, nil
}

func (r *countryManagerRepository) List(ctx context.Context) ([]domain.CountryManager, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []countryManagerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.CountryManager, len(docs))
	for i, d := range docs {
		result[i] = domain.CountryManager(d)
	}
	return result, nil
}

func (r *countryManagerRepository) Upsert(ctx context.Context, manager *domain.CountryManager) error {
	manager.UpdatedAt = time.Now().UTC()
	after := options.After
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(after)
	var doc countryManagerDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": manager.Country},
		bson.M{"$set": bson.M{"manager_email": manager.ManagerEmail, "updated_at": manager.UpdatedAt}},
		opts,
	).Decode(&doc)
	if err != nil {
		return err
	}
	*manager = domain.CountryManager(doc)
	return nil
}

func (r *countryManagerRepository) Delete(ctx context.Context, country string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": country})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
