package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUSampler_Sample(t *testing.T) {
	sampler := NewCPUSampler(50 * time.Millisecond)

	percent, err := sampler.Sample(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, percent, 0.0)
	assert.LessOrEqual(t, percent, 100.0)
}
