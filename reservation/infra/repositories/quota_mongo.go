package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

// QuotaStoreMongo keeps one document per (user, month). The quota check
// and increment are a single conditional upsert so two concurrent
// admissions cannot both slip past the cap.
type QuotaStoreMongo struct {
	coll *mongo.Collection
}

type quotaDoc struct {
	User              string   `bson:"user"`
	Month             int      `bson:"month"`
	ReservationCount  int      `bson:"reservation_count"`
	ReservedItemNames []string `bson:"reserved_item_names"`
}

func NewQuotaStoreMongo(ctx context.Context, db *mongo.Database) (*QuotaStoreMongo, error) {
	coll := db.Collection("quotas")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "month", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create quota index: %w", err)
	}
	return &QuotaStoreMongo{coll: coll}, nil
}

func (s *QuotaStoreMongo) GetOrCreate(ctx context.Context, user string, month int) (*reservation.MonthlyQuota, error) {
	var doc quotaDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"user": user, "month": month},
		bson.M{"$setOnInsert": bson.M{"reservation_count": 0, "reserved_item_names": bson.A{}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("get or create quota: %w", err)
	}
	return docToQuota(&doc), nil
}

func (s *QuotaStoreMongo) Increment(ctx context.Context, user string, month int, itemName string, limit int) (int, error) {
	// The filter only matches while the count is below limit; when the
	// record exists at the cap, the upsert collides with the unique
	// (user, month) index instead of inserting a duplicate. A duplicate
	// key on a fresh record means another request inserted it first, so
	// retry against the now-existing document.
	for attempt := 0; attempt < 3; attempt++ {
		var doc quotaDoc
		err := s.coll.FindOneAndUpdate(ctx,
			bson.M{"user": user, "month": month, "reservation_count": bson.M{"$lt": limit}},
			bson.M{
				"$inc":  bson.M{"reservation_count": 1},
				"$push": bson.M{"reserved_item_names": itemName},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&doc)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, reservation.ErrQuotaExceeded
		}
		if err != nil {
			return 0, fmt.Errorf("increment quota: %w", err)
		}
		return doc.ReservationCount, nil
	}
	return 0, reservation.ErrQuotaExceeded
}

func (s *QuotaStoreMongo) Decrement(ctx context.Context, user string, month int, itemName string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"user": user, "month": month, "reservation_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"reservation_count": -1}})
	if err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}
	if res.MatchedCount == 0 {
		// Already at zero; nothing to release.
		return nil
	}

	// Unset one matching array slot, then compact. $pull alone would drop
	// every duplicate of the name at once.
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"user": user, "month": month, "reserved_item_names": itemName},
		bson.M{"$unset": bson.M{"reserved_item_names.$": 1}})
	if err != nil {
		return fmt.Errorf("remove quota item name: %w", err)
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"user": user, "month": month},
		bson.M{"$pull": bson.M{"reserved_item_names": nil}})
	if err != nil {
		return fmt.Errorf("compact quota item names: %w", err)
	}
	return nil
}

func docToQuota(d *quotaDoc) *reservation.MonthlyQuota {
	return &reservation.MonthlyQuota{
		User:              d.User,
		Month:             d.Month,
		ReservationCount:  d.ReservationCount,
		ReservedItemNames: d.ReservedItemNames,
	}
}
