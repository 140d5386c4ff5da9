package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// MongoOptions connection settings
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

type mongoMedicineRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoMedicineRepository MongoDB backed medicine repository. Ensures the
// unique (added_by, name_lower) index and the secondary indexes.
func NewMongoMedicineRepository(ctx context.Context, opts MongoOptions) (repository.MedicineRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "added_by", Value: 1}, {Key: "name_lower", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "added_by", Value: 1}}},
		{Keys: bson.D{{Key: "exp_date", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}

	return &mongoMedicineRepository{client: client, coll: coll}, nil
}

// Insert stores a new medicine
func (r *mongoMedicineRepository) Insert(ctx context.Context, med *entity.Medicine) error {
	doc := *med
	doc.ID = uuid.New().String()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err, "insert "+med.Name)
	}
	med.ID = doc.ID
	return nil
}

// FindByID medicine by ID
func (r *mongoMedicineRepository) FindByID(ctx context.Context, id string, owner int64) (*entity.Medicine, error) {
	return r.findOne(ctx, bson.M{"_id": id, "added_by": owner}, "medicine "+id)
}

// FindByNameKey medicine by name key
func (r *mongoMedicineRepository) FindByNameKey(ctx context.Context, nameKey string, owner int64) (*entity.Medicine, error) {
	return r.findOne(ctx, bson.M{"name_lower": nameKey, "added_by": owner}, "medicine "+nameKey)
}

// ListByOwner all medicines of owner
func (r *mongoMedicineRepository) ListByOwner(ctx context.Context, owner int64) ([]entity.Medicine, error) {
	return r.find(ctx, bson.M{"added_by": owner}, options.Find().SetSort(bson.D{{Key: "name_lower", Value: 1}}))
}

// Search substring search over name keys
func (r *mongoMedicineRepository) Search(ctx context.Context, owner int64, needles []string, offset, limit int) ([]entity.Medicine, error) {
	var or []bson.M
	for _, n := range needles {
		if n == "" {
			continue
		}
		or = append(or, bson.M{"name_lower": bson.M{"$regex": regexp.QuoteMeta(n)}})
	}
	if len(or) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_lower", Value: 1}})
	if limit > 0 {
		opts.SetSkip(int64(offset)).SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"added_by": owner, "$or": or}, opts)
}

// UpdateFields partial update
func (r *mongoMedicineRepository) UpdateFields(ctx context.Context, id string, owner int64, upd entity.MedicineUpdate) (bool, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.NameKey != nil {
		set["name_lower"] = *upd.NameKey
	}
	if upd.Quantity != nil {
		set["quantity"] = *upd.Quantity
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if upd.ExpDate != nil {
		set["exp_date"] = *upd.ExpDate
	}

	filter := bson.M{"_id": id, "added_by": owner}
	if len(set) == 0 {
		if _, err := r.FindByID(ctx, id, owner); err != nil {
			return false, err
		}
		return false, nil
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, mapMongoError(err, "update "+id)
	}
	if res.MatchedCount == 0 {
		return false, fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return res.ModifiedCount > 0, nil
}

// Delete removes a medicine
func (r *mongoMedicineRepository) Delete(ctx context.Context, id string, owner int64) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "added_by": owner})
	if err != nil {
		return mapMongoError(err, "delete "+id)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("medicine %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DistinctOwners owners with at least one medicine
func (r *mongoMedicineRepository) DistinctOwners(ctx context.Context) ([]int64, error) {
	values, err := r.coll.Distinct(ctx, "added_by", bson.D{})
	if err != nil {
		return nil, mapMongoError(err, "distinct owners")
	}

	owners := make([]int64, 0, len(values))
	for _, v := range values {
		switch owner := v.(type) {
		case int64:
			owners = append(owners, owner)
		case int32:
			owners = append(owners, int64(owner))
		case float64:
			owners = append(owners, int64(owner))
		}
	}
	return owners, nil
}

// FindExpiringBetween medicines expiring in [from, to]
func (r *mongoMedicineRepository) FindExpiringBetween(ctx context.Context, owner int64, from, to string) ([]entity.Medicine, error) {
	filter := bson.M{"added_by": owner, "exp_date": bson.M{"$gte": from, "$lte": to}}
	return r.find(ctx, filter, options.Find().SetSort(byExpDateSort))
}

// FindExpiredBefore medicines expired before date
func (r *mongoMedicineRepository) FindExpiredBefore(ctx context.Context, owner int64, date string) ([]entity.Medicine, error) {
	filter := bson.M{"added_by": owner, "exp_date": bson.M{"$lt": date}}
	return r.find(ctx, filter, options.Find().SetSort(byExpDateSort))
}

// Close disconnects the client
func (r *mongoMedicineRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

var byExpDateSort = bson.D{{Key: "exp_date", Value: 1}, {Key: "name_lower", Value: 1}}

func (r *mongoMedicineRepository) findOne(ctx context.Context, filter bson.M, what string) (*entity.Medicine, error) {
	var med entity.Medicine
	if err := r.coll.FindOne(ctx, filter).Decode(&med); err != nil {
		return nil, mapMongoError(err, what)
	}
	return &med, nil
}

func (r *mongoMedicineRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]entity.Medicine, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapMongoError(err, "find medicines")
	}
	var meds []entity.Medicine
	if err := cur.All(ctx, &meds); err != nil {
		return nil, mapMongoError(err, "decode medicines")
	}
	return meds, nil
}

func mapMongoError(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}
