package dynamorepo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dynamorepo "github.com/RafaeldaSilvaa/dynamo-repository"
	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage/badgerstore"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

type Customer struct {
	CustomerID string `dynamodbav:"customer_id"`
	TenantID   string `dynamodbav:"tenant_id"`
	Name       string `dynamodbav:"name"`
	Email      string `dynamodbav:"email"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"created_at"`
	Version    int    `dynamodbav:"version"`
}

func (Customer) Table() table.Definition {
	return table.Definition{
		TableName: "customers",
		Attributes: []table.AttributeDefinition{
			{Name: "customer_id", Kind: table.KeyKindS, HashKey: true},
			{Name: "tenant_id", Kind: table.KeyKindS, RangeKey: true},
			{Name: "name", Kind: table.KeyKindS},
			{Name: "email", Kind: table.KeyKindS},
			{Name: "status", Kind: table.KeyKindS},
			{Name: "created_at", Kind: table.KeyKindS},
		},
		GlobalIndexes: []table.IndexDefinition{
			{Name: "email-index", Attributes: []table.AttributeDefinition{
				{Name: "email", Kind: table.KeyKindS, HashKey: true},
			}},
			{Name: "status-index", Attributes: []table.AttributeDefinition{
				{Name: "status", Kind: table.KeyKindS, HashKey: true},
				{Name: "created_at", Kind: table.KeyKindS, RangeKey: true},
			}},
		},
	}
}

type keylessEntity struct {
	Payload string `dynamodbav:"payload"`
}

func (keylessEntity) Table() table.Definition {
	return table.Definition{
		TableName: "keyless",
		Attributes: []table.AttributeDefinition{
			{Name: "payload", Kind: table.KeyKindS},
		},
	}
}

func newTestRepo(t *testing.T) *dynamorepo.Repository[Customer] {
	t.Helper()
	store, err := badgerstore.New(badgerstore.Options{InMemory: true}, Customer{}.Table())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	repo, err := dynamorepo.New[Customer](store)
	require.NoError(t, err)
	return repo
}

func customer(i int) *Customer {
	status := "inactive"
	if i%2 == 0 {
		status = "active"
	}
	return &Customer{
		CustomerID: fmt.Sprintf("C%04d", i),
		TenantID:   fmt.Sprintf("T%d", i%3),
		Name:       fmt.Sprintf("User %d", i),
		Email:      fmt.Sprintf("user%d@example.com", i),
		Status:     status,
		CreatedAt:  fmt.Sprintf("2024-01-%02dT00:00:00Z", i),
		Version:    1,
	}
}

func keyOf(c *Customer) dynamorepo.Key {
	return dynamorepo.Key{Hash: c.CustomerID, Range: c.TenantID}
}

func TestNewFailsWithoutHashKey(t *testing.T) {
	store, err := badgerstore.New(badgerstore.Options{InMemory: true}, keylessEntity{}.Table())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	_, err = dynamorepo.New[keylessEntity](store)
	require.ErrorIs(t, err, table.ErrMissingHashKey)
}

func TestInsertGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := customer(1)
	_, err := repo.Insert(ctx, want)
	require.NoError(t, err)

	got, err := repo.Get(ctx, keyOf(want))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestGetShortCircuitsOnEmptyHashKey(t *testing.T) {
	// A nil storage client proves nothing is called for an empty hash key.
	repo, err := dynamorepo.New[Customer](nil)
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), dynamorepo.Key{Hash: ""})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.Get(context.Background(), dynamorepo.Key{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMissingIsNotAnError(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Get(context.Background(), dynamorepo.Key{Hash: "C9999", Range: "T0"})
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repo.Exists(context.Background(), dynamorepo.Key{Hash: "C9999", Range: "T0"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	c.Name = "Replaced"
	_, err = repo.Insert(ctx, c)
	require.NoError(t, err)

	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, "Replaced", got.Name)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, keyOf(c)))
	require.NoError(t, repo.Delete(ctx, keyOf(c)))

	exists, err := repo.Exists(ctx, keyOf(c))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateMergesNonKeyAttributes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	changed := *c
	changed.Name = "Updated Name"
	_, err = repo.Update(ctx, &changed, dynamorepo.WithConsistentRead())
	require.NoError(t, err)

	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", got.Name)
	assert.Equal(t, c.Status, got.Status)
	assert.Equal(t, c.Email, got.Email)
}

func TestUpdateMissingItemFails(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Update(context.Background(), customer(1))
	require.ErrorIs(t, err, dynamorepo.ErrItemNotFound)
}

func TestUpdatePreservesKeys(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	// An instance whose range key was mutated addresses a different,
	// nonexistent item. The stored item's keys must stay untouched.
	mutated := *c
	mutated.TenantID = "T9"
	mutated.Name = "Should Not Land"
	_, err = repo.Update(ctx, &mutated)
	require.ErrorIs(t, err, dynamorepo.ErrItemNotFound)

	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.CustomerID, got.CustomerID)
	assert.Equal(t, c.TenantID, got.TenantID)
	assert.Equal(t, c.Name, got.Name)
}

func TestUpdateVersionCheck(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	next := *c
	next.Version = 2
	next.Name = "Second Edition"
	_, err = repo.Update(ctx, &next, dynamorepo.WithVersionCheck("version", 1))
	require.NoError(t, err)

	// The token advanced; a writer still holding version 1 must conflict.
	stale := *c
	stale.Name = "Lost Update"
	_, err = repo.Update(ctx, &stale, dynamorepo.WithVersionCheck("version", 1))
	require.ErrorIs(t, err, dynamorepo.ErrConflict)

	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, "Second Edition", got.Name)
	assert.Equal(t, 2, got.Version)
}

func TestUpsertTotality(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Missing key: behaves as insert, never ErrItemNotFound.
	c := customer(1)
	_, err := repo.Upsert(ctx, c)
	require.NoError(t, err)
	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// Existing key: behaves as update (merge).
	changed := *c
	changed.Email = "newemail@example.com"
	_, err = repo.Upsert(ctx, &changed)
	require.NoError(t, err)
	got, err = repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, "newemail@example.com", got.Email)
	assert.Equal(t, c.Name, got.Name)
}

func TestExampleScenario(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := &Customer{CustomerID: "C0001", TenantID: "T1", Name: "User 1", Status: "active"}
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	key := dynamorepo.Key{Hash: "C0001", Range: "T1"}
	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "User 1", got.Name)

	got.Name = "Updated Name"
	_, err = repo.Update(ctx, got)
	require.NoError(t, err)

	got, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", got.Name)
	assert.Equal(t, "active", got.Status)

	require.NoError(t, repo.Delete(ctx, key))
	got, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func seedCustomers(t *testing.T, repo *dynamorepo.Repository[Customer], n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := repo.Insert(context.Background(), customer(i))
		require.NoError(t, err)
	}
}

func TestQueryByHashKeyReturnsPartition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 6)

	it, err := repo.Query(ctx, dynamorepo.Query{HashKeyValue: "C0003"})
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "C0003", items[0].CustomerID)
}

func TestQueryWithRangeConditionAndFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, tenant := range []string{"T1", "T2", "U1"} {
		c := customer(1)
		c.TenantID = tenant
		_, err := repo.Insert(ctx, c)
		require.NoError(t, err)
	}

	it, err := repo.Query(ctx, dynamorepo.Query{
		HashKeyValue:   "C0001",
		RangeCondition: condition.BeginsWith("tenant_id", "T"),
	})
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQueryInvalidDispatchFailsBeforeStorage(t *testing.T) {
	counter := &countingClient{}
	repo, err := dynamorepo.New[Customer](counter)
	require.NoError(t, err)

	// No hash key, no fallback.
	_, err = repo.Query(context.Background(), dynamorepo.Query{})
	require.ErrorIs(t, err, dynamorepo.ErrInvalidQuery)

	// Fallback opted in, but no range condition to scan on.
	_, err = repo.Query(context.Background(), dynamorepo.Query{ScanFallback: true})
	require.ErrorIs(t, err, dynamorepo.ErrInvalidQuery)

	// Filter alone does not enable the fallback either.
	_, err = repo.Query(context.Background(), dynamorepo.Query{
		ScanFallback: false,
		Filter:       condition.Equals("status", "active"),
	})
	require.ErrorIs(t, err, dynamorepo.ErrInvalidQuery)

	assert.Zero(t, counter.calls, "invalid dispatch must not reach storage")
}

func TestQueryScanFallback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 6)

	it, err := repo.Query(ctx, dynamorepo.Query{
		RangeCondition: condition.BeginsWith("tenant_id", "T"),
		ScanFallback:   true,
	})
	require.NoError(t, err)
	viaFallback, err := it.All(ctx)
	require.NoError(t, err)

	it, err = repo.Scan(ctx, dynamorepo.Scan{Filter: condition.BeginsWith("tenant_id", "T")})
	require.NoError(t, err)
	viaScan, err := it.All(ctx)
	require.NoError(t, err)

	assert.Len(t, viaFallback, 6)
	assert.ElementsMatch(t, viaScan, viaFallback)
}

func TestQueryIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 6)

	it, err := repo.QueryIndex(ctx, "status-index", dynamorepo.Query{HashKeyValue: "active"})
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, c := range items {
		assert.Equal(t, "active", c.Status)
	}

	// Sorted by the index range key, newest first.
	it, err = repo.QueryIndex(ctx, "status-index", dynamorepo.Query{
		HashKeyValue: "active",
		Descending:   true,
		Limit:        2,
	})
	require.NoError(t, err)
	items, err = it.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C0006", items[0].CustomerID)
	assert.Equal(t, "C0004", items[1].CustomerID)

	_, err = repo.QueryIndex(ctx, "nope-index", dynamorepo.Query{HashKeyValue: "active"})
	require.Error(t, err)
}

func TestQueryIndexSharedHashKeyReturnsAllItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Index keys are not unique across items: two customers sharing an
	// email must both come back from the email index.
	a := customer(1)
	b := customer(2)
	a.Email = "shared@example.com"
	b.Email = "shared@example.com"
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, b)
	require.NoError(t, err)

	it, err := repo.QueryIndex(ctx, "email-index", dynamorepo.Query{HashKeyValue: "shared@example.com"})
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ids := []string{items[0].CustomerID, items[1].CustomerID}
	assert.ElementsMatch(t, []string{"C0001", "C0002"}, ids)
}

func TestQueryIndexScanFallback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 6)

	// Same dispatch rule as on the table: no hash key, fallback opted in
	// with a range condition, so the index is scanned with the condition
	// applied as a filter.
	it, err := repo.QueryIndex(ctx, "status-index", dynamorepo.Query{
		RangeCondition: condition.GreaterThanOrEqual("created_at", "2024-01-04"),
		ScanFallback:   true,
	})
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, c := range items {
		assert.GreaterOrEqual(t, c.CreatedAt, "2024-01-04")
	}

	// Without the fallback the same query still fails fast.
	_, err = repo.QueryIndex(ctx, "status-index", dynamorepo.Query{
		RangeCondition: condition.GreaterThanOrEqual("created_at", "2024-01-04"),
	})
	require.ErrorIs(t, err, dynamorepo.ErrInvalidQuery)
}

func TestScanPaginated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 9)

	it, err := repo.ScanPaginated(ctx, dynamorepo.Scan{Limit: 5}, 2)
	require.NoError(t, err)
	items, err := it.All(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestIteratorIsLazyAndExhausts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 3)

	it, err := repo.Scan(ctx, dynamorepo.Scan{})
	require.NoError(t, err)

	var count int
	for {
		c, err := it.Next(ctx)
		require.NoError(t, err)
		if c == nil {
			break
		}
		count++
	}
	assert.Equal(t, 3, count)

	// Exhausted iterators keep returning (nil, nil).
	c, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestBatchGetOmitsMissingKeys(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedCustomers(t, repo, 3)

	got, err := repo.BatchGet(ctx, []dynamorepo.Key{
		{Hash: "C0001", Range: "T1"},
		{Hash: "C0002", Range: "T2"},
		{Hash: "C9999", Range: "T0"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.BatchGet(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildActions(t *testing.T) {
	actions := dynamorepo.BuildActions(map[string]any{
		"status": "suspended",
		"email":  "x@example.com",
		"name":   "Renamed",
	})
	require.Len(t, actions, 3)
	// Deterministic order: sorted by attribute name.
	assert.Equal(t, []storage.SetAction{
		{Name: "email", Value: "x@example.com"},
		{Name: "name", Value: "Renamed"},
		{Name: "status", Value: "suspended"},
	}, actions)

	assert.Empty(t, dynamorepo.BuildActions(nil))
}

func TestUpdateActions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := customer(1)
	_, err := repo.Insert(ctx, c)
	require.NoError(t, err)

	actions := dynamorepo.BuildActions(map[string]any{"status": "suspended"})
	require.NoError(t, repo.UpdateActions(ctx, keyOf(c), actions...))

	got, err := repo.Get(ctx, keyOf(c))
	require.NoError(t, err)
	assert.Equal(t, "suspended", got.Status)
	assert.Equal(t, c.Name, got.Name)

	// No actions is a no-op, not an error.
	require.NoError(t, repo.UpdateActions(ctx, keyOf(c)))
}

// countingClient counts storage calls to prove fail-fast paths never reach
// the backend.
type countingClient struct {
	calls int
}

var _ storage.Client = (*countingClient)(nil)

func (c *countingClient) GetItem(context.Context, storage.GetRequest) (storage.Item, error) {
	c.calls++
	return nil, nil
}

func (c *countingClient) PutItem(context.Context, storage.PutRequest) error {
	c.calls++
	return nil
}

func (c *countingClient) UpdateItem(context.Context, storage.UpdateRequest) error {
	c.calls++
	return nil
}

func (c *countingClient) DeleteItem(context.Context, storage.DeleteRequest) error {
	c.calls++
	return nil
}

func (c *countingClient) Query(context.Context, storage.QueryRequest) (storage.Pager, error) {
	c.calls++
	return nil, nil
}

func (c *countingClient) Scan(context.Context, storage.ScanRequest) (storage.Pager, error) {
	c.calls++
	return nil, nil
}

func (c *countingClient) BatchGetItems(context.Context, storage.BatchGetRequest) ([]storage.Item, error) {
	c.calls++
	return nil, nil
}
