package events

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

func TestBus_PublishInOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []Kind
	bus.Subscribe(func(e Event) { got = append(got, e.Kind) })

	bus.Publish(Event{Kind: KindBatchCreated}, Event{Kind: KindCollectorDataAdded})
	bus.Publish(Event{Kind: KindLabDataAdded})

	assert.Equal(t, []Kind{KindBatchCreated, KindCollectorDataAdded, KindLabDataAdded}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var a, b int
	unsubA := bus.Subscribe(func(Event) { a++ })
	bus.Subscribe(func(Event) { b++ })

	bus.Publish(Event{Kind: KindBatchCreated})
	unsubA()
	unsubA()
	bus.Publish(Event{Kind: KindBatchCreated})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(zerolog.New(&buf))

	var delivered int
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { delivered++ })

	require.NotPanics(t, func() { bus.Publish(Event{Kind: KindMiddlemanDataAdded, Seq: 4}) })
	assert.Equal(t, 1, delivered)
	assert.Contains(t, buf.String(), "event subscriber panicked")
}

func TestFromModel(t *testing.T) {
	id := int64(3)
	stage := int(custody.StageLab)
	e := FromModel(&models.LedgerEvent{
		Seq:       9,
		Kind:      string(KindLabDataAdded),
		BatchID:   &id,
		Stage:     &stage,
		Writer:    "0xLab",
		ContentID: "QmLab",
	})

	assert.Equal(t, int64(3), e.BatchID)
	assert.Equal(t, "lab", e.Stage)
	assert.Equal(t, KindLabDataAdded, e.Kind)
	assert.Equal(t, KindManufacturerDataAdded, StageKind(custody.StageManufacturer))
}
