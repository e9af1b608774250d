package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository is the order ledger backed by the orders collection.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	PartCode  string               `bson:"part_code"`
	Name      string               `bson:"name"`
	ImageURL  string               `bson:"image_url,omitempty"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int                  `bson:"quantity"`
}

type addressDoc struct {
	FirstName  string `bson:"first_name"`
	LastName   string `bson:"last_name"`
	Address    string `bson:"address"`
	City       string `bson:"city"`
	District   string `bson:"district"`
	PostalCode string `bson:"postal_code"`
}

type historyDoc struct {
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
	Actor     string    `bson:"actor,omitempty"`
}

type orderDoc struct {
	ID                string               `bson:"_id"`
	TrackingNumber    string               `bson:"tracking_number"`
	UserID            string               `bson:"user_id"`
	GuestName         string               `bson:"guest_name,omitempty"`
	GuestEmail        string               `bson:"guest_email,omitempty"`
	Phone             string               `bson:"phone,omitempty"`
	Items             []orderItemDoc       `bson:"items"`
	Subtotal          primitive.Decimal128 `bson:"subtotal"`
	ShippingCost      primitive.Decimal128 `bson:"shipping_cost"`
	Total             primitive.Decimal128 `bson:"total"`
	Status            string               `bson:"status"`
	ShippingAddress   addressDoc           `bson:"shipping_address"`
	PaymentMethod     string               `bson:"payment_method"`
	Notes             string               `bson:"notes,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
	ReturnRequested   bool                 `bson:"return_requested"`
	ReturnRequestedAt *time.Time           `bson:"return_requested_at,omitempty"`
	StatusHistory     []historyDoc         `bson:"status_history"`
	IdempotencyKey    string               `bson:"idempotency_key,omitempty"`
}

// Append inserts a new ledger record.
func (r *OrderRepository) Append(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toOrderDoc(o)
	if err != nil {
		return fmt.Errorf("append order: %w", err)
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("append order %s: %w", o.ID, domain.ErrOrderConflict)
		}
		return fmt.Errorf("append order: %w", err)
	}
	return nil
}

// FindByID retrieves one order.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc orderDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return fromOrderDoc(doc), nil
}

// List returns a page of orders in insertion order.
func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromOrderDoc(d))
	}
	return out, total, nil
}

// UpdateStatus atomically moves the order from one status to another and
// appends a history entry.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time, actor string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": string(from)}
	update := bson.M{
		"$set": bson.M{"status": string(to), "updated_at": at.UTC()},
		"$push": bson.M{"status_history": historyDoc{
			Status:    string(to),
			Timestamp: at.UTC(),
			Actor:     actor,
		}},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// MarkReturnRequested flags a delivered order that has not been flagged yet.
func (r *OrderRepository) MarkReturnRequested(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":              id,
		"status":           string(domain.StatusDelivered),
		"return_requested": false,
	}
	update := bson.M{"$set": bson.M{
		"return_requested":    true,
		"return_requested_at": at.UTC(),
		"updated_at":          at.UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark return requested: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// Stats groups the ledger by status.
func (r *OrderRepository) Stats(ctx context.Context) (map[domain.OrderStatus]ports.StatusStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status  string               `bson:"_id"`
		Count   int64                `bson:"count"`
		Revenue primitive.Decimal128 `bson:"revenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode order stats: %w", err)
	}

	out := make(map[domain.OrderStatus]ports.StatusStats, len(rows))
	for _, row := range rows {
		out[domain.OrderStatus(row.Status)] = ports.StatusStats{
			Count:   row.Count,
			Revenue: fromDecimal128(row.Revenue),
		}
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tracking_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *OrderRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("lookup order: %w", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return domain.ErrOrderConflict
}

func toOrderDoc(o *domain.Order) (orderDoc, error) {
	subtotal, err := toDecimal128(o.Subtotal)
	if err != nil {
		return orderDoc{}, err
	}
	shipping, err := toDecimal128(o.ShippingCost)
	if err != nil {
		return orderDoc{}, err
	}
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, err
	}

	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return orderDoc{}, err
		}
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			PartCode:  it.PartCode,
			Name:      it.Name,
			ImageURL:  it.ImageURL,
			UnitPrice: price,
			Quantity:  it.Quantity,
		})
	}

	history := make([]historyDoc, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, historyDoc{Status: string(h.Status), Timestamp: h.Timestamp.UTC(), Actor: h.Actor})
	}

	return orderDoc{
		ID:             o.ID,
		TrackingNumber: o.TrackingNumber,
		UserID:         o.UserID,
		GuestName:      o.GuestName,
		GuestEmail:     o.GuestEmail,
		Phone:          o.Phone,
		Items:          items,
		Subtotal:       subtotal,
		ShippingCost:   shipping,
		Total:          total,
		Status:         string(o.Status),
		ShippingAddress: addressDoc{
			FirstName:  o.ShippingAddress.FirstName,
			LastName:   o.ShippingAddress.LastName,
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			District:   o.ShippingAddress.District,
			PostalCode: o.ShippingAddress.PostalCode,
		},
		PaymentMethod:     o.PaymentMethod,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt.UTC(),
		UpdatedAt:         o.UpdatedAt.UTC(),
		ReturnRequested:   o.ReturnRequested,
		ReturnRequestedAt: o.ReturnRequestedAt,
		StatusHistory:     history,
		IdempotencyKey:    o.IdempotencyKey,
	}, nil
}

func fromOrderDoc(d orderDoc) *domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			PartCode:  it.PartCode,
			Name:      it.Name,
			ImageURL:  it.ImageURL,
			UnitPrice: fromDecimal128(it.UnitPrice),
			Quantity:  it.Quantity,
		})
	}

	history := make([]domain.StatusHistoryEntry, 0, len(d.StatusHistory))
	for _, h := range d.StatusHistory {
		history = append(history, domain.StatusHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			Timestamp: h.Timestamp.UTC(),
			Actor:     h.Actor,
		})
	}

	return &domain.Order{
		ID:             d.ID,
		TrackingNumber: d.TrackingNumber,
		UserID:         d.UserID,
		GuestName:      d.GuestName,
		GuestEmail:     d.GuestEmail,
		Phone:          d.Phone,
		Items:          items,
		Subtotal:       fromDecimal128(d.Subtotal),
		ShippingCost:   fromDecimal128(d.ShippingCost),
		Total:          fromDecimal128(d.Total),
		Status:         domain.OrderStatus(d.Status),
		ShippingAddress: domain.ShippingAddress{
			FirstName:  d.ShippingAddress.FirstName,
			LastName:   d.ShippingAddress.LastName,
			Address:    d.ShippingAddress.Address,
			City:       d.ShippingAddress.City,
			District:   d.ShippingAddress.District,
			PostalCode: d.ShippingAddress.PostalCode,
		},
		PaymentMethod:     d.PaymentMethod,
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
		ReturnRequested:   d.ReturnRequested,
		ReturnRequestedAt: d.ReturnRequestedAt,
		StatusHistory:     history,
		IdempotencyKey:    d.IdempotencyKey,
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
