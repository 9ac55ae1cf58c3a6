package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, GetRunID(ctx))

	again, sameID := Ensure(ctx)
	assert.Equal(t, id, sameID)
	assert.Equal(t, ctx, again)
}

func TestGetters_Defaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", GetRunID(ctx))
	assert.Equal(t, "", GetCategory(ctx))

	ctx = WithCategory(WithRunID(ctx, "run-1"), "medical")
	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Equal(t, "medical", GetCategory(ctx))
}
