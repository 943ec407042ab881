package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrKey(t *testing.T) {
	key := strKey("invoice_id", "inv1")
	require.Len(t, key, 1)
	s, ok := key["invoice_id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "inv1", s.Value)
}

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"status": "paid"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, "status", names["#f0"])
	s, ok := values[":v0"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "paid", s.Value)
}

func TestBuildUpdateExpr_MultipleFields(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		"status":      "paid",
		"transfer_id": "tx1",
	})
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Len(t, values, 2)
	assert.Contains(t, expr, "SET ")
	assert.Contains(t, expr, ", ")
}

func TestBuildUpdateExpr_Empty(t *testing.T) {
	_, _, _, err := buildUpdateExpr(map[string]interface{}{})
	assert.Error(t, err)
}
