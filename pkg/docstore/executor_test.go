package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrders() []Document {
	return []Document{
		{"connection_id": "c1", "customer": "alice", "total": 100.0, "status": "paid"},
		{"connection_id": "c1", "customer": "bob", "total": 50.0, "status": "paid"},
		{"connection_id": "c1", "customer": "alice", "total": 25.0, "status": "cancelled"},
	}
}

func TestExecutor_Match(t *testing.T) {
	exec := NewExecutor(nil)
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$match": map[string]interface{}{"status": "paid"}},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExecutor_MatchWithComparisonOperator(t *testing.T) {
	exec := NewExecutor(nil)
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$match": map[string]interface{}{"total": map[string]interface{}{"$gte": 50.0}}},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExecutor_GroupSumByCustomer(t *testing.T) {
	exec := NewExecutor(nil)
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$match": map[string]interface{}{"status": "paid"}},
		{"$group": map[string]interface{}{
			"_id":   "$customer",
			"total": map[string]interface{}{"$sum": "$total"},
		}},
		{"$sort": map[string]interface{}{"total": -1}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "alice", out[0]["_id"])
	assert.Equal(t, 100.0, out[0]["total"])
}

func TestExecutor_LimitAndSkip(t *testing.T) {
	exec := NewExecutor(nil)
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$skip": 1},
		{"$limit": 1},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0]["customer"])
}

func TestExecutor_Count(t *testing.T) {
	exec := NewExecutor(nil)
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$match": map[string]interface{}{"status": "paid"}},
		{"$count": "paidCount"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0]["paidCount"])
}

func TestExecutor_Lookup(t *testing.T) {
	orderItems := map[string][]Document{
		"c2": {
			{"order_customer": "alice", "sku": "SKU1"},
			{"order_customer": "bob", "sku": "SKU2"},
		},
	}
	exec := NewExecutor(func(from string) []Document {
		return orderItems[from]
	})
	out, err := exec.Run(sampleOrders(), []Stage{
		{"$match": map[string]interface{}{"status": "paid"}},
		{"$lookup": map[string]interface{}{
			"from":         "c2",
			"localField":   "customer",
			"foreignField": "order_customer",
			"as":           "items",
		}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, d := range out {
		items, ok := d["items"].([]interface{})
		require.True(t, ok)
		assert.Len(t, items, 1)
	}
}

func TestExecutor_UnwindExpandsArrayField(t *testing.T) {
	docs := []Document{
		{"order_id": "o1", "skus": []interface{}{"A", "B"}},
	}
	exec := NewExecutor(nil)
	out, err := exec.Run(docs, []Stage{
		{"$unwind": "$skus"},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
