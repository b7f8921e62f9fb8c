package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

type ReservationStoreMongo struct {
	coll *mongo.Collection
}

type reservationDoc struct {
	ReservationID  string    `bson:"reservation_id"`
	User           string    `bson:"user"`
	UserEmail      string    `bson:"user_email"`
	InvID          string    `bson:"inv_id"`
	ItemName       string    `bson:"item_name"`
	Status         string    `bson:"status"`
	StatusComment  string    `bson:"status_comment"`
	CopiesReserved int       `bson:"copies_reserved"`
	CreatedAt      time.Time `bson:"created_at"`
	ExpiresAt      time.Time `bson:"expires_at"`
}

var openStatuses = bson.A{string(reservation.StatusRequested), string(reservation.StatusReserved)}

func NewReservationStoreMongo(ctx context.Context, db *mongo.Database) (*ReservationStoreMongo, error) {
	coll := db.Collection("reservations")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reservation_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Partial unique index over open reservations: the duplicate
			// check is enforced at insert time, so two concurrent
			// admissions for the same (user, item) cannot both commit.
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "inv_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": openStatuses}}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create reservation indexes: %w", err)
	}
	return &ReservationStoreMongo{coll: coll}, nil
}

func (s *ReservationStoreMongo) Insert(ctx context.Context, r *reservation.Reservation) error {
	_, err := s.coll.InsertOne(ctx, reservationToDoc(r))
	if mongo.IsDuplicateKeyError(err) {
		// Collision on the open (user, inv_id) index: the user already
		// holds an open reservation for this item.
		return reservation.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *ReservationStoreMongo) FindByID(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	var doc reservationDoc
	err := s.coll.FindOne(ctx, bson.M{"reservation_id": reservationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reservation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return docToReservation(&doc), nil
}

func (s *ReservationStoreMongo) FindOpenByUserAndItem(ctx context.Context, user, invID string) (*reservation.Reservation, error) {
	var doc reservationDoc
	err := s.coll.FindOne(ctx, bson.M{
		"user":   user,
		"inv_id": invID,
		"status": bson.M{"$in": openStatuses},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open reservation: %w", err)
	}
	return docToReservation(&doc), nil
}

func (s *ReservationStoreMongo) List(ctx context.Context, user string, page, limit int) ([]reservation.Reservation, int64, error) {
	filter := bson.M{}
	if user != "" {
		filter["user"] = user
	}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	skip := int64((page - 1) * limit)
	if skip < 0 {
		skip = 0
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	var docs []reservationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode reservations: %w", err)
	}
	out := make([]reservation.Reservation, 0, len(docs))
	for i := range docs {
		out = append(out, *docToReservation(&docs[i]))
	}
	return out, total, nil
}

func (s *ReservationStoreMongo) UpdateStatus(ctx context.Context, reservationID string, status reservation.Status, comment string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"reservation_id": reservationID},
		bson.M{"$set": bson.M{"status": string(status), "status_comment": comment}})
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if res.MatchedCount == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (s *ReservationStoreMongo) UpdateStatusMany(ctx context.Context, reservationIDs []string, status reservation.Status, comment string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{
			"reservation_id": bson.M{"$in": reservationIDs},
			"status":         bson.M{"$in": openStatuses},
		},
		bson.M{"$set": bson.M{"status": string(status), "status_comment": comment}})
	if err != nil {
		return 0, fmt.Errorf("update reservations: %w", err)
	}
	// MatchedCount, not ModifiedCount: a no-op write (same status and
	// comment) still counts, matching the memory store.
	return res.MatchedCount, nil
}

func (s *ReservationStoreMongo) Delete(ctx context.Context, reservationID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"reservation_id": reservationID})
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if res.DeletedCount == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (s *ReservationStoreMongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("purge reservations: %w", err)
	}
	return res.DeletedCount, nil
}

func reservationToDoc(r *reservation.Reservation) reservationDoc {
	return reservationDoc{
		ReservationID:  r.ReservationID,
		User:           r.User,
		UserEmail:      r.UserEmail,
		InvID:          r.InvID,
		ItemName:       r.ItemName,
		Status:         string(r.Status),
		StatusComment:  r.StatusComment,
		CopiesReserved: r.CopiesReserved,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}

func docToReservation(d *reservationDoc) *reservation.Reservation {
	return &reservation.Reservation{
		ReservationID:  d.ReservationID,
		User:           d.User,
		UserEmail:      d.UserEmail,
		InvID:          d.InvID,
		ItemName:       d.ItemName,
		Status:         reservation.Status(d.Status),
		StatusComment:  d.StatusComment,
		CopiesReserved: d.CopiesReserved,
		CreatedAt:      d.CreatedAt,
		ExpiresAt:      d.ExpiresAt,
	}
}
