package main

import (
	"fmt"
	"time"

	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// Customer is the demo entity: composite key (customer_id, tenant_id), an
// email GSI and a status GSI sorted by creation time.
type Customer struct {
	CustomerID string `dynamodbav:"customer_id"`
	TenantID   string `dynamodbav:"tenant_id"`
	Name       string `dynamodbav:"name"`
	Email      string `dynamodbav:"email"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"created_at"`
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
			{
				Name: "email-index",
				Attributes: []table.AttributeDefinition{
					{Name: "email", Kind: table.KeyKindS, HashKey: true},
				},
			},
			{
				Name: "status-index",
				Attributes: []table.AttributeDefinition{
					{Name: "status", Kind: table.KeyKindS, HashKey: true},
					{Name: "created_at", Kind: table.KeyKindS, RangeKey: true},
				},
			},
		},
	}
}

func newCustomer(i int) *Customer {
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
		CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
	}
}
