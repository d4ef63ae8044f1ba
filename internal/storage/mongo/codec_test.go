package mongo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func rawField(t *testing.T, value interface{}) bson.RawValue {
	t.Helper()

	doc, err := bson.Marshal(bson.M{"v": value})
	require.NoError(t, err)
	return bson.Raw(doc).Lookup("v")
}

func TestDecimalFromRaw_LegacyNumericTypes(t *testing.T) {
	dec128, err := primitive.ParseDecimal128("12.345")
	require.NoError(t, err)

	testCases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "decimal128", value: dec128, want: "12.345"},
		{name: "double", value: 2.5, want: "2.5"},
		{name: "int32", value: int32(7), want: "7"},
		{name: "int64", value: int64(-40), want: "-40"},
		{name: "string", value: "0.10", want: "0.1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decimalFromRaw(rawField(t, tc.value))
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestDecimalFromRaw_MissingAndNullAreZero(t *testing.T) {
	got, err := decimalFromRaw(bson.RawValue{})
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = decimalFromRaw(rawField(t, nil))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDecimalFromRaw_UnsupportedType(t *testing.T) {
	_, err := decimalFromRaw(rawField(t, true))
	require.Error(t, err)
}

func TestDecimalToBSON_RoundTrip(t *testing.T) {
	original := decimal.RequireFromString("-199.99")

	encoded, err := decimalToBSON(original)
	require.NoError(t, err)

	decoded, err := decimalFromRaw(rawField(t, encoded))
	require.NoError(t, err)
	assert.True(t, decoded.Equal(original))
}

func TestIDConversion(t *testing.T) {
	hex := NewID()

	asBSON := idToBSON(hex)
	oid, ok := asBSON.(primitive.ObjectID)
	require.True(t, ok, "hex id must be stored as ObjectID")
	assert.Equal(t, hex, oid.Hex())
	assert.Equal(t, hex, idFromRaw(rawField(t, asBSON)))

	plain := idToBSON("order-1")
	assert.Equal(t, "order-1", plain)
	assert.Equal(t, "order-1", idFromRaw(rawField(t, plain)))

	assert.Equal(t, "", idFromRaw(bson.RawValue{}))
}

func TestStore_NilGuards(t *testing.T) {
	var store *Store

	require.Error(t, store.Ping(context.Background()))
	require.Error(t, store.EnsureIndexes(context.Background()))
	require.NoError(t, store.Close(context.Background()))
}
