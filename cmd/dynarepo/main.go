// dynarepo is a demo driver for the repository: it seeds customer fixtures
// into either an embedded store or real DynamoDB and walks every repository
// operation.
//
//	dynarepo --memory
//	dynarepo --db ./data
//	dynarepo --aws --seed 20
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	dynamorepo "github.com/RafaeldaSilvaa/dynamo-repository"
	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage/badgerstore"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage/dynamostore"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "badger database directory (empty = in-memory)")
		memory  = flag.Bool("memory", false, "force in-memory mode")
		useAWS  = flag.Bool("aws", false, "use real DynamoDB via the default AWS config")
		seed    = flag.Int("seed", 10, "number of customers to seed")
		schema  = flag.String("schema", "", "YAML schema file with additional table definitions for the embedded store")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if err := run(context.Background(), *dbPath, *memory, *useAWS, *seed, *schema, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "dynarepo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, memory, useAWS bool, seed int, schemaPath string, verbose bool) error {
	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	var client storage.Client
	if useAWS {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		client = dynamostore.New(dynamodb.NewFromConfig(cfg))
	} else {
		defs := []table.Definition{Customer{}.Table()}
		if schemaPath != "" {
			extra, err := table.LoadSchema(schemaPath)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			defs = append(defs, extra...)
		}
		store, err := badgerstore.New(badgerstore.Options{Path: dbPath, InMemory: memory}, defs...)
		if err != nil {
			return err
		}
		defer store.Close()
		client = store
	}

	repo, err := dynamorepo.New[Customer](client, dynamorepo.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := seedCustomers(ctx, repo, seed); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return examples(ctx, repo)
}

func seedCustomers(ctx context.Context, repo *dynamorepo.Repository[Customer], n int) error {
	for i := 1; i <= n; i++ {
		if _, err := repo.Insert(ctx, newCustomer(i)); err != nil {
			return err
		}
	}
	return nil
}

func examples(ctx context.Context, repo *dynamorepo.Repository[Customer]) error {
	c := newCustomer(1)
	key := dynamorepo.Key{Hash: c.CustomerID, Range: c.TenantID}

	fmt.Println("1. Get:")
	got, err := repo.Get(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf(" - %s | %s | %s\n", got.CustomerID, got.TenantID, got.Name)

	fmt.Println("2. Exists:")
	exists, err := repo.Exists(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf(" - exists? %v\n", exists)

	fmt.Println("3. Update:")
	got.Name = "Updated Name"
	if _, err := repo.Update(ctx, got, dynamorepo.WithConsistentRead()); err != nil {
		return err
	}

	fmt.Println("4. Upsert existing:")
	got.Email = "newemail@example.com"
	if _, err := repo.Upsert(ctx, got); err != nil {
		return err
	}

	fmt.Println("5. Upsert new:")
	fresh := newCustomer(1000)
	if _, err := repo.Upsert(ctx, fresh); err != nil {
		return err
	}

	fmt.Println("6. Delete (idempotent):")
	freshKey := dynamorepo.Key{Hash: fresh.CustomerID, Range: fresh.TenantID}
	if err := repo.Delete(ctx, freshKey); err != nil {
		return err
	}
	if err := repo.Delete(ctx, freshKey); err != nil {
		return err
	}

	fmt.Println("7. Query by hash key:")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.Query(ctx, dynamorepo.Query{HashKeyValue: c.CustomerID})
	}); err != nil {
		return err
	}

	fmt.Println("8. Query with range condition:")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.Query(ctx, dynamorepo.Query{
			HashKeyValue:   c.CustomerID,
			RangeCondition: condition.BeginsWith("tenant_id", "T"),
		})
	}); err != nil {
		return err
	}

	fmt.Println("9. Query status index, newest first:")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.QueryIndex(ctx, "status-index", dynamorepo.Query{
			HashKeyValue: "active",
			Descending:   true,
			Limit:        5,
		})
	}); err != nil {
		return err
	}

	fmt.Println("10. Query without hash key, scan fallback:")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.Query(ctx, dynamorepo.Query{
			RangeCondition: condition.BeginsWith("tenant_id", "T"),
			ScanFallback:   true,
		})
	}); err != nil {
		return err
	}

	fmt.Println("11. Scan with filter (status=inactive):")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.Scan(ctx, dynamorepo.Scan{Filter: condition.Equals("status", "inactive")})
	}); err != nil {
		return err
	}

	fmt.Println("12. Scan paginated (limit 5, page size 2):")
	if err := printAll(ctx, func() (*dynamorepo.Iterator[Customer], error) {
		return repo.ScanPaginated(ctx, dynamorepo.Scan{Limit: 5}, 2)
	}); err != nil {
		return err
	}

	fmt.Println("13. Batch get (missing keys omitted):")
	customers, err := repo.BatchGet(ctx, []dynamorepo.Key{
		key,
		{Hash: "C0002", Range: "T2"},
		{Hash: "C9999", Range: "T0"},
	})
	if err != nil {
		return err
	}
	for _, c := range customers {
		fmt.Printf(" - %s | %s\n", c.CustomerID, c.TenantID)
	}

	fmt.Println("14. Partial update via set actions:")
	actions := dynamorepo.BuildActions(map[string]any{"status": "suspended", "name": "Renamed"})
	if err := repo.UpdateActions(ctx, key, actions...); err != nil {
		return err
	}
	got, err = repo.Get(ctx, key, dynamorepo.StronglyConsistent())
	if err != nil {
		return err
	}
	fmt.Printf(" - %s | %s | %s\n", got.CustomerID, got.Name, got.Status)

	return nil
}

func printAll(ctx context.Context, query func() (*dynamorepo.Iterator[Customer], error)) error {
	it, err := query()
	if err != nil {
		return err
	}
	items, err := it.All(ctx)
	if err != nil {
		return err
	}
	for _, c := range items {
		fmt.Printf(" - %s | %s | %s\n", c.CustomerID, c.TenantID, c.Status)
	}
	return nil
}
