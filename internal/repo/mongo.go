package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/menu-catalog/internal/catalog"
)

// Collection names.
const (
	CollectionCategories    = "categories"
	CollectionSubCategories = "subcategories"
	CollectionItems         = "items"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo: connection uri is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

type categoryDoc struct {
	ID               primitive.ObjectID   `bson:"_id"`
	Name             string               `bson:"name"`
	Image            string               `bson:"image"`
	Description      string               `bson:"description"`
	TaxApplicability bool                 `bson:"taxApplicability"`
	Tax              *float64             `bson:"tax,omitempty"`
	TaxType          string               `bson:"taxType,omitempty"`
	SubCategories    []primitive.ObjectID `bson:"subcategories"`
}

type subCategoryDoc struct {
	ID               primitive.ObjectID   `bson:"_id"`
	Name             string               `bson:"name"`
	Image            string               `bson:"image"`
	Description      string               `bson:"description"`
	TaxApplicability bool                 `bson:"taxApplicability"`
	Tax              *float64             `bson:"tax,omitempty"`
	Category         primitive.ObjectID   `bson:"category"`
	Items            []primitive.ObjectID `bson:"items"`
}

type itemDoc struct {
	ID               primitive.ObjectID  `bson:"_id"`
	Name             string              `bson:"name"`
	Image            string              `bson:"image"`
	Description      string              `bson:"description"`
	TaxApplicability bool                `bson:"taxApplicability"`
	Tax              *float64            `bson:"tax,omitempty"`
	BaseAmount       float64             `bson:"baseAmount"`
	Discount         float64             `bson:"discount"`
	TotalAmount      float64             `bson:"totalAmount"`
	Category         *primitive.ObjectID `bson:"category,omitempty"`
	SubCategory      *primitive.ObjectID `bson:"subcategory,omitempty"`
}

// MongoStore is the MongoDB backed catalog.Store. Relationship lists are stored as
// ObjectID arrays and resolved with explicit lookups.
type MongoStore struct {
	categories    *mongo.Collection
	subCategories *mongo.Collection
	items         *mongo.Collection
}

var _ catalog.Store = (*MongoStore)(nil)

// NewMongoStore binds the store to the catalog collections of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		categories:    db.Collection(CollectionCategories),
		subCategories: db.Collection(CollectionSubCategories),
		items:         db.Collection(CollectionItems),
	}
}

// EnsureIndexes creates the lookup indexes used by name searches and parent filters.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	models := []struct {
		coll  *mongo.Collection
		field string
		name  string
	}{
		{s.categories, "name", "category_name"},
		{s.subCategories, "name", "subcategory_name"},
		{s.subCategories, "category", "subcategory_category"},
		{s.items, "name", "item_name"},
		{s.items, "category", "item_category"},
		{s.items, "subcategory", "item_subcategory"},
	}
	for _, m := range models {
		_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: m.field, Value: 1}},
			Options: options.Index().SetName(m.name),
		})
		if err != nil && !isIndexExistsError(err) {
			return fmt.Errorf("create index %s: %w", m.name, err)
		}
	}
	return nil
}

// Ping verifies the backing deployment is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.categories.Database().Client().Ping(ctx, nil)
}

func (s *MongoStore) InsertCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	doc := categoryDoc{
		ID:               primitive.NewObjectID(),
		Name:             c.Name,
		Image:            c.Image,
		Description:      c.Description,
		TaxApplicability: c.TaxApplicability,
		Tax:              c.Tax,
		TaxType:          c.TaxType,
		SubCategories:    []primitive.ObjectID{},
	}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		return catalog.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetCategory(ctx context.Context, id string) (catalog.Category, error) {
	var doc categoryDoc
	if err := findByID(ctx, s.categories, id, &doc); err != nil {
		return catalog.Category{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.findCategories(ctx, bson.D{})
}

func (s *MongoStore) FindCategoriesByName(ctx context.Context, name string) ([]catalog.Category, error) {
	return s.findCategories(ctx, bson.D{{Key: "name", Value: name}})
}

func (s *MongoStore) findCategories(ctx context.Context, filter bson.D) ([]catalog.Category, error) {
	var docs []categoryDoc
	if err := findAll(ctx, s.categories, filter, &docs); err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	out := make([]catalog.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) UpdateCategory(ctx context.Context, id string, u catalog.CategoryUpdate) (catalog.Category, error) {
	set := bson.D{
		{Key: "name", Value: u.Name},
		{Key: "image", Value: u.Image},
		{Key: "description", Value: u.Description},
		{Key: "taxApplicability", Value: u.TaxApplicability},
	}
	var unset bson.D
	if u.Tax != nil {
		set = append(set, bson.E{Key: "tax", Value: *u.Tax})
	} else {
		unset = append(unset, bson.E{Key: "tax", Value: ""})
	}
	if u.TaxType != "" {
		set = append(set, bson.E{Key: "taxType", Value: u.TaxType})
	} else {
		unset = append(unset, bson.E{Key: "taxType", Value: ""})
	}
	var doc categoryDoc
	if err := updateByID(ctx, s.categories, id, buildUpdate(set, unset), &doc); err != nil {
		return catalog.Category{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) LinkSubCategory(ctx context.Context, categoryID, subCategoryID string) error {
	return addToSet(ctx, s.categories, categoryID, "subcategories", subCategoryID)
}

func (s *MongoStore) InsertSubCategory(ctx context.Context, sc catalog.SubCategory) (catalog.SubCategory, error) {
	parent, err := primitive.ObjectIDFromHex(sc.CategoryID)
	if err != nil {
		return catalog.SubCategory{}, catalog.ErrNotFound
	}
	doc := subCategoryDoc{
		ID:               primitive.NewObjectID(),
		Name:             sc.Name,
		Image:            sc.Image,
		Description:      sc.Description,
		TaxApplicability: sc.TaxApplicability,
		Tax:              sc.Tax,
		Category:         parent,
		Items:            []primitive.ObjectID{},
	}
	if _, err := s.subCategories.InsertOne(ctx, doc); err != nil {
		return catalog.SubCategory{}, fmt.Errorf("insert subcategory: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetSubCategory(ctx context.Context, id string) (catalog.SubCategory, error) {
	var doc subCategoryDoc
	if err := findByID(ctx, s.subCategories, id, &doc); err != nil {
		return catalog.SubCategory{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListSubCategories(ctx context.Context) ([]catalog.SubCategory, error) {
	return s.findSubCategories(ctx, bson.D{})
}

func (s *MongoStore) FindSubCategoriesByName(ctx context.Context, name string) ([]catalog.SubCategory, error) {
	return s.findSubCategories(ctx, bson.D{{Key: "name", Value: name}})
}

func (s *MongoStore) ListSubCategoriesByIDs(ctx context.Context, ids []string) ([]catalog.SubCategory, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []catalog.SubCategory{}, nil
	}
	rows, err := s.findSubCategories(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return nil, err
	}
	return inOrder(ids, rows, func(sc catalog.SubCategory) string { return sc.ID }), nil
}

func (s *MongoStore) findSubCategories(ctx context.Context, filter bson.D) ([]catalog.SubCategory, error) {
	var docs []subCategoryDoc
	if err := findAll(ctx, s.subCategories, filter, &docs); err != nil {
		return nil, fmt.Errorf("find subcategories: %w", err)
	}
	out := make([]catalog.SubCategory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) UpdateSubCategory(ctx context.Context, id string, u catalog.SubCategoryUpdate) (catalog.SubCategory, error) {
	set := bson.D{
		{Key: "name", Value: u.Name},
		{Key: "image", Value: u.Image},
		{Key: "description", Value: u.Description},
	}
	var doc subCategoryDoc
	if err := updateByID(ctx, s.subCategories, id, buildUpdate(set, nil), &doc); err != nil {
		return catalog.SubCategory{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) LinkItem(ctx context.Context, subCategoryID, itemID string) error {
	return addToSet(ctx, s.subCategories, subCategoryID, "items", itemID)
}

func (s *MongoStore) InsertItem(ctx context.Context, it catalog.Item) (catalog.Item, error) {
	doc := itemDoc{
		ID:               primitive.NewObjectID(),
		Name:             it.Name,
		Image:            it.Image,
		Description:      it.Description,
		TaxApplicability: it.TaxApplicability,
		Tax:              it.Tax,
		BaseAmount:       it.BaseAmount,
		Discount:         it.Discount,
		TotalAmount:      it.TotalAmount,
	}
	var err error
	if doc.Category, err = optionalObjectID(it.CategoryID); err != nil {
		return catalog.Item{}, err
	}
	if doc.SubCategory, err = optionalObjectID(it.SubCategoryID); err != nil {
		return catalog.Item{}, err
	}
	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return catalog.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetItem(ctx context.Context, id string) (catalog.Item, error) {
	var doc itemDoc
	if err := findByID(ctx, s.items, id, &doc); err != nil {
		return catalog.Item{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListItems(ctx context.Context) ([]catalog.Item, error) {
	return s.findItems(ctx, bson.D{})
}

func (s *MongoStore) FindItemsByName(ctx context.Context, name string) ([]catalog.Item, error) {
	return s.findItems(ctx, bson.D{{Key: "name", Value: name}})
}

func (s *MongoStore) ListItemsByCategory(ctx context.Context, categoryID string) ([]catalog.Item, error) {
	oid, err := primitive.ObjectIDFromHex(categoryID)
	if err != nil {
		return []catalog.Item{}, nil
	}
	return s.findItems(ctx, bson.D{{Key: "category", Value: oid}})
}

func (s *MongoStore) ListItemsByIDs(ctx context.Context, ids []string) ([]catalog.Item, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []catalog.Item{}, nil
	}
	rows, err := s.findItems(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return nil, err
	}
	return inOrder(ids, rows, func(it catalog.Item) string { return it.ID }), nil
}

func (s *MongoStore) findItems(ctx context.Context, filter bson.D) ([]catalog.Item, error) {
	var docs []itemDoc
	if err := findAll(ctx, s.items, filter, &docs); err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	out := make([]catalog.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) UpdateItem(ctx context.Context, id string, u catalog.ItemUpdate) (catalog.Item, error) {
	set := bson.D{
		{Key: "name", Value: u.Name},
		{Key: "image", Value: u.Image},
		{Key: "description", Value: u.Description},
		{Key: "taxApplicability", Value: u.TaxApplicability},
		{Key: "baseAmount", Value: u.BaseAmount},
		{Key: "discount", Value: u.Discount},
		{Key: "totalAmount", Value: u.TotalAmount},
	}
	var unset bson.D
	if u.Tax != nil {
		set = append(set, bson.E{Key: "tax", Value: *u.Tax})
	} else {
		unset = append(unset, bson.E{Key: "tax", Value: ""})
	}
	var doc itemDoc
	if err := updateByID(ctx, s.items, id, buildUpdate(set, unset), &doc); err != nil {
		return catalog.Item{}, err
	}
	return doc.toModel(), nil
}

func findByID(ctx context.Context, coll *mongo.Collection, id string, dst any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalog.ErrNotFound
	}
	err = coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	return nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.D, dst any) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	return cursor.All(ctx, dst)
}

func updateByID(ctx context.Context, coll *mongo.Collection, id string, update bson.D, dst any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalog.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", coll.Name(), err)
	}
	return nil
}

// addToSet appends childID to the array field of the parent document. $addToSet keeps
// concurrent appends from losing or duplicating IDs.
func addToSet(ctx context.Context, coll *mongo.Collection, parentID, field, childID string) error {
	parent, err := primitive.ObjectIDFromHex(parentID)
	if err != nil {
		return catalog.ErrNotFound
	}
	child, err := primitive.ObjectIDFromHex(childID)
	if err != nil {
		return fmt.Errorf("link %s: invalid child id %q", coll.Name(), childID)
	}
	res, err := coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: parent}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: child}}}},
	)
	if err != nil {
		return fmt.Errorf("link %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func buildUpdate(set, unset bson.D) bson.D {
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func optionalObjectID(id *string) (*primitive.ObjectID, error) {
	if id == nil {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(*id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return &oid, nil
}

// inOrder arranges rows to follow ids, dropping IDs with no matching row.
func inOrder[T any](ids []string, rows []T, key func(T) string) []T {
	byID := make(map[string]T, len(rows))
	for _, row := range rows {
		byID[key(row)] = row
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out
}

func isIndexExistsError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == 85 || cmdErr.Code == 86) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

func hexIDs(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func optionalHex(oid *primitive.ObjectID) *string {
	if oid == nil {
		return nil
	}
	hex := oid.Hex()
	return &hex
}

func (d categoryDoc) toModel() catalog.Category {
	return catalog.Category{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Image:            d.Image,
		Description:      d.Description,
		TaxApplicability: d.TaxApplicability,
		Tax:              d.Tax,
		TaxType:          d.TaxType,
		SubCategories:    hexIDs(d.SubCategories),
	}
}

func (d subCategoryDoc) toModel() catalog.SubCategory {
	return catalog.SubCategory{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Image:            d.Image,
		Description:      d.Description,
		TaxApplicability: d.TaxApplicability,
		Tax:              d.Tax,
		CategoryID:       d.Category.Hex(),
		Items:            hexIDs(d.Items),
	}
}

func (d itemDoc) toModel() catalog.Item {
	return catalog.Item{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Image:            d.Image,
		Description:      d.Description,
		TaxApplicability: d.TaxApplicability,
		Tax:              d.Tax,
		BaseAmount:       d.BaseAmount,
		Discount:         d.Discount,
		TotalAmount:      d.TotalAmount,
		CategoryID:       optionalHex(d.Category),
		SubCategoryID:    optionalHex(d.SubCategory),
	}
}
