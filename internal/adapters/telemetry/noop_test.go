package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forage/internal/adapters/telemetry"
)

func TestNoOp(t *testing.T) {
	rec := telemetry.NewNoOp()

	v := rec.Record("anything")
	n, err := v.Stdout().Write([]byte("dropped"))
	assert.NoError(t, err)
	assert.Equal(t, 7, n)

	v.Cached()
	v.Complete(assert.AnError)
	assert.NoError(t, rec.Close())
}
