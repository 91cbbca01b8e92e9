package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/tailor-market/api/internal/domain"
	pmongo "github.com/tailor-market/api/internal/platform/mongo"
	"github.com/tailor-market/api/internal/repositories"
)

type designRepository struct{ coll *mongo.Collection }

func (r designRepository) FindByID(ctx context.Context, tx repositories.Tx, designID string) (domain.Design, error) {
	mtx, err := txFrom(tx)
	if err != nil {
		return domain.Design{}, err
	}
	var doc designDocument
	if err := r.coll.FindOne(mtx.Context(ctx), bson.M{"_id": designID}).Decode(&doc); err != nil {
		return domain.Design{}, pmongo.WrapError("designs.get", err)
	}
	return doc.toDomain(), nil
}

type cartRepository struct{ coll *mongo.Collection }

func (r cartRepository) Insert(ctx context.Context, item domain.CartItem) error {
	_, err := r.coll.InsertOne(ctx, newCartItemDocument(item))
	return pmongo.WrapError("carts.insert", err)
}

func (r cartRepository) Update(ctx context.Context, item domain.CartItem) error {
	res, err := r.coll.UpdateByID(ctx, item.ID, bson.M{"$set": bson.M{
		"quantity":     item.Quantity,
		"shippingCost": item.ShippingCost,
		"updatedAt":    item.UpdatedAt.UTC(),
	}})
	if err != nil {
		return pmongo.WrapError("carts.update", err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound("carts.update", item.ID)
	}
	return nil
}

func (r cartRepository) Delete(ctx context.Context, itemID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		return pmongo.WrapError("carts.delete", err)
	}
	if res.DeletedCount == 0 {
		return pmongo.NotFound("carts.delete", itemID)
	}
	return nil
}

func (r cartRepository) FindByID(ctx context.Context, itemID string) (domain.CartItem, error) {
	var doc cartItemDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": itemID}).Decode(&doc); err != nil {
		return domain.CartItem{}, pmongo.WrapError("carts.get", err)
	}
	return doc.toDomain(), nil
}

func (r cartRepository) FindDuplicate(ctx context.Context, item domain.CartItem) (domain.CartItem, bool, error) {
	filter := bson.M{
		"_id":        bson.M{"$ne": item.ID},
		"clientId":   item.ClientID,
		"designId":   item.DesignID,
		"materialId": item.MaterialID,
		"sizeId":     item.SizeID,
		"colorId":    item.ColorID,
	}
	var doc cartItemDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.CartItem{}, false, nil
	}
	if err != nil {
		return domain.CartItem{}, false, pmongo.WrapError("carts.duplicate", err)
	}
	return doc.toDomain(), true, nil
}

func (r cartRepository) ListByClient(ctx context.Context, clientID string) ([]domain.CartItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var docs []cartItemDocument
	if err := findAll(ctx, r.coll, bson.M{"clientId": clientID}, opts, &docs); err != nil {
		return nil, pmongo.WrapError("carts.list", err)
	}
	items := make([]domain.CartItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return items, nil
}

func (r cartRepository) RemoveByClient(ctx context.Context, tx repositories.Tx, clientID string, itemIDs []string) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	filter := bson.M{"clientId": clientID}
	if len(itemIDs) > 0 {
		filter["_id"] = bson.M{"$in": itemIDs}
	}
	_, err = r.coll.DeleteMany(mtx.Context(ctx), filter)
	return pmongo.WrapError("carts.remove", err)
}

type orderRepository struct{ coll *mongo.Collection }

func (r orderRepository) Insert(ctx context.Context, tx repositories.Tx, order domain.Order) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(mtx.Context(ctx), newOrderDocument(order))
	return pmongo.WrapError("orders.insert", err)
}

func (r orderRepository) Update(ctx context.Context, tx repositories.Tx, order domain.Order) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(mtx.Context(ctx), bson.M{"_id": order.ID}, newOrderDocument(order))
	if err != nil {
		return pmongo.WrapError("orders.update", err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound("orders.update", order.ID)
	}
	return nil
}

func (r orderRepository) FindByID(ctx context.Context, tx repositories.Tx, orderID string) (domain.Order, error) {
	mtx, err := txFrom(tx)
	if err != nil {
		return domain.Order{}, err
	}
	var doc orderDocument
	if err := r.coll.FindOne(mtx.Context(ctx), bson.M{"_id": orderID}).Decode(&doc); err != nil {
		return domain.Order{}, pmongo.WrapError("orders.get", err)
	}
	return doc.toDomain(), nil
}

func (r orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	query := bson.M{}
	if filter.ClientID != "" {
		query["clientId"] = filter.ClientID
	}
	if filter.DesignerID != "" {
		query["designerId"] = filter.DesignerID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	var docs []orderDocument
	if err := findAll(ctx, r.coll, query, pageOptions(filter.Sort, filter.Limit, filter.Offset), &docs); err != nil {
		return domain.Page[domain.Order]{}, pmongo.WrapError("orders.list", err)
	}
	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return trimPage(items, filter.Limit, filter.Offset), nil
}

type transactionRepository struct{ coll *mongo.Collection }

func (r transactionRepository) Append(ctx context.Context, tx repositories.Tx, txn domain.Transaction) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(mtx.Context(ctx), newTransactionDocument(txn))
	return pmongo.WrapError("transactions.append", err)
}

func (r transactionRepository) UpdateStatus(ctx context.Context, tx repositories.Tx, txnID string, status domain.TransactionStatus, updatedAt time.Time) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateByID(mtx.Context(ctx), txnID, bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": updatedAt.UTC(),
	}})
	if err != nil {
		return pmongo.WrapError("transactions.update", err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound("transactions.update", txnID)
	}
	return nil
}

func (r transactionRepository) FindByID(ctx context.Context, tx repositories.Tx, txnID string) (domain.Transaction, error) {
	mtx, err := txFrom(tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	var doc transactionDocument
	if err := r.coll.FindOne(mtx.Context(ctx), bson.M{"_id": txnID}).Decode(&doc); err != nil {
		return domain.Transaction{}, pmongo.WrapError("transactions.get", err)
	}
	return doc.toDomain(), nil
}

func (r transactionRepository) List(ctx context.Context, filter repositories.TransactionListFilter) (domain.Page[domain.Transaction], error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	created := bson.M{}
	if !filter.MinDate.IsZero() {
		created["$gte"] = filter.MinDate.UTC()
	}
	if !filter.MaxDate.IsZero() {
		created["$lte"] = filter.MaxDate.UTC()
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}
	amount := bson.M{}
	if filter.MinAmount != nil {
		amount["$gte"] = *filter.MinAmount
	}
	if filter.MaxAmount != nil {
		amount["$lte"] = *filter.MaxAmount
	}
	if len(amount) > 0 {
		query["amount"] = amount
	}
	for key, value := range map[string]string{
		"type":     string(filter.Type),
		"action":   string(filter.Action),
		"status":   string(filter.Status),
		"platform": filter.Platform,
	} {
		if value != "" {
			query[key] = value
		}
	}

	var docs []transactionDocument
	if err := findAll(ctx, r.coll, query, pageOptions(filter.Sort, filter.Limit, filter.Offset), &docs); err != nil {
		return domain.Page[domain.Transaction]{}, pmongo.WrapError("transactions.list", err)
	}
	items := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return trimPage(items, filter.Limit, filter.Offset), nil
}

type walletRepository struct{ coll *mongo.Collection }

func (r walletRepository) Get(ctx context.Context, tx repositories.Tx, userID string) (domain.Wallet, error) {
	mtx, err := txFrom(tx)
	if err != nil {
		return domain.Wallet{}, err
	}
	var doc userDocument
	if err := r.coll.FindOne(mtx.Context(ctx), bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.Wallet{}, pmongo.WrapError("users.get", err)
	}
	status := domain.UserStatus(doc.Status)
	if status == "" {
		status = domain.UserStatusActive
	}
	return domain.Wallet{UserID: doc.ID, Main: doc.Wallet.Main, UserStatus: status, UpdatedAt: doc.UpdatedAt}, nil
}

func (r walletRepository) SetBalance(ctx context.Context, tx repositories.Tx, userID string, balance int64, updatedAt time.Time) error {
	mtx, err := txFrom(tx)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateByID(mtx.Context(ctx), userID, bson.M{"$set": bson.M{
		"wallet.main": balance,
		"updatedAt":   updatedAt.UTC(),
	}})
	if err != nil {
		return pmongo.WrapError("users.update", err)
	}
	if res.MatchedCount == 0 {
		return pmongo.NotFound("users.update", userID)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, out *[]T) error {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

// pageOptions sorts by creation time and asks for one extra row so callers can report HasMore.
func pageOptions(sort domain.SortOrder, limit, offset int) *options.FindOptions {
	dir := -1
	if sort == domain.SortAsc {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit + 1))
	}
	return opts
}

func trimPage[T any](items []T, limit, offset int) domain.Page[T] {
	page := domain.Page[T]{Items: items, Limit: limit, Offset: offset}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	return page
}
