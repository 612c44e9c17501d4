package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeIntervalContains(t *testing.T) {
	i := TimeInterval{Lower: 5, Upper: 8}

	assert.True(t, i.Contains(5))
	assert.True(t, i.Contains(7))
	assert.False(t, i.Contains(8))
	assert.False(t, i.Contains(4))
	assert.False(t, i.Empty())
	assert.Equal(t, "[5, 8)", i.String())
}

func TestTimeIntervalEmpty(t *testing.T) {
	assert.True(t, TimeInterval{Lower: 3, Upper: 3}.Empty())
	assert.True(t, TimeInterval{Lower: 4, Upper: 3}.Empty())
	assert.False(t, TimeInterval{Lower: 3, Upper: 4}.Empty())
}

func TestMarketAgentIdentity(t *testing.T) {
	id := MarketID(7)
	assert.Equal(t, AgentID(7), id.Agent())
}
