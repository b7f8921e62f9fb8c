package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

// ItemRepositoryMongo persists the catalog in a MongoDB collection keyed
// by inv_id. Copy adjustment is a single conditional update so concurrent
// reservations cannot both pass a stale stock check.
type ItemRepositoryMongo struct {
	coll *mongo.Collection
}

type itemDoc struct {
	InvID       string    `bson:"inv_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Type        string    `bson:"type"`
	Copies      int       `bson:"copies"`
	Archived    bool      `bson:"archived"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func NewItemRepositoryMongo(ctx context.Context, db *mongo.Database) (*ItemRepositoryMongo, error) {
	coll := db.Collection("items")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "inv_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create items index: %w", err)
	}
	return &ItemRepositoryMongo{coll: coll}, nil
}

func (r *ItemRepositoryMongo) Get(ctx context.Context, invID string) (*item.Item, error) {
	var doc itemDoc
	err := r.coll.FindOne(ctx, bson.M{"inv_id": invID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, item.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ItemRepositoryMongo) List(ctx context.Context, page, limit int) ([]item.Item, int64, error) {
	return r.list(ctx, bson.M{}, page, limit)
}

func (r *ItemRepositoryMongo) ListArchived(ctx context.Context, page, limit int) ([]item.Item, int64, error) {
	return r.list(ctx, bson.M{"archived": true}, page, limit)
}

func (r *ItemRepositoryMongo) list(ctx context.Context, filter bson.M, page, limit int) ([]item.Item, int64, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	skip := int64((page - 1) * limit)
	if skip < 0 {
		skip = 0
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "inv_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode items: %w", err)
	}
	out := make([]item.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toDomain())
	}
	return out, total, nil
}

func (r *ItemRepositoryMongo) Create(ctx context.Context, it *item.Item) error {
	_, err := r.coll.InsertOne(ctx, fromDomain(it))
	if mongo.IsDuplicateKeyError(err) {
		return item.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *ItemRepositoryMongo) Update(ctx context.Context, it *item.Item) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"inv_id": it.InvID},
		bson.M{"$set": bson.M{
			"name":        it.Name,
			"description": it.Description,
			"type":        it.Type,
			"copies":      it.Copies,
			"updated_at":  time.Now().UTC(),
		}})
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if res.MatchedCount == 0 {
		return item.ErrNotFound
	}
	return nil
}

func (r *ItemRepositoryMongo) Archive(ctx context.Context, invID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"inv_id": invID},
		bson.M{"$set": bson.M{"archived": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("archive item: %w", err)
	}
	if res.MatchedCount == 0 {
		return item.ErrNotFound
	}
	return nil
}

func (r *ItemRepositoryMongo) DeleteMany(ctx context.Context, invIDs []string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"inv_id": bson.M{"$in": invIDs}})
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *ItemRepositoryMongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("purge items: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *ItemRepositoryMongo) AdjustCopies(ctx context.Context, invID string, delta int) (int, error) {
	filter := bson.M{"inv_id": invID}
	if delta < 0 {
		// Conditional decrement: only matches while enough copies remain.
		filter = bson.M{"inv_id": invID, "archived": false, "copies": bson.M{"$gte": -delta}}
	}
	update := bson.M{
		"$inc": bson.M{"copies": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	var doc itemDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Filter miss: distinguish a missing/archived item from a stock
		// shortage with a plain read.
		var probe itemDoc
		probeErr := r.coll.FindOne(ctx, bson.M{"inv_id": invID}).Decode(&probe)
		if errors.Is(probeErr, mongo.ErrNoDocuments) || (probeErr == nil && probe.Archived) {
			return 0, item.ErrNotFound
		}
		if probeErr != nil {
			return 0, fmt.Errorf("probe item: %w", probeErr)
		}
		return 0, item.ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("adjust copies: %w", err)
	}
	return doc.Copies, nil
}

func (d *itemDoc) toDomain() *item.Item {
	return &item.Item{
		InvID:       d.InvID,
		Name:        d.Name,
		Description: d.Description,
		Type:        d.Type,
		Copies:      d.Copies,
		Archived:    d.Archived,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func fromDomain(it *item.Item) itemDoc {
	return itemDoc{
		InvID:       it.InvID,
		Name:        it.Name,
		Description: it.Description,
		Type:        it.Type,
		Copies:      it.Copies,
		Archived:    it.Archived,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}
