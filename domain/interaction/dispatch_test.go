package interaction

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maartenscholl/esl/domain/simulation"
)

func TestDispatchRunsHandlersInPriorityOrder(t *testing.T) {
	d := NewDispatcher()
	step := simulation.TimeInterval{Lower: 10, Upper: 11}

	var order []string
	d.Register(CodeOrder, 5, "second", func(Message, simulation.TimeInterval, *rand.Rand) simulation.TimePoint {
		order = append(order, "second")
		return 20
	})
	d.Register(CodeOrder, 0, "first", func(Message, simulation.TimeInterval, *rand.Rand) simulation.TimePoint {
		order = append(order, "first")
		return 15
	})

	wake, handled := d.Dispatch(Header{Code: CodeOrder}, step, nil)
	require.True(t, handled)
	assert.Equal(t, []string{"first", "second"}, order)

	// The earliest requested wake wins.
	assert.Equal(t, simulation.TimePoint(15), wake)

	assert.Equal(t, []string{"first", "second"}, d.Descriptions(CodeOrder))
}

func TestDispatchIgnoresUnregisteredCodes(t *testing.T) {
	d := NewDispatcher()
	step := simulation.TimeInterval{Lower: 3, Upper: 4}

	wake, handled := d.Dispatch(Header{Code: CodeQuote}, step, nil)
	assert.False(t, handled)
	assert.Equal(t, step.Upper, wake)
}

func TestDispatchEqualPrioritiesKeepRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	step := simulation.TimeInterval{Lower: 0, Upper: 1}

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.Register(CodeQuote, 1, "handler", func(Message, simulation.TimeInterval, *rand.Rand) simulation.TimePoint {
			order = append(order, i)
			return step.Upper
		})
	}

	_, handled := d.Dispatch(Header{Code: CodeQuote}, step, nil)
	require.True(t, handled)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
