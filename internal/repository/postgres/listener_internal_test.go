package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/events"
)

func TestDecodeChange(t *testing.T) {
	ev, err := decodeChange(`{"collection":"loans","id":"l1","op":"updated","at":"2024-05-01T10:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionLoans, ev.Collection)
	assert.Equal(t, "l1", ev.ID)
	assert.Equal(t, domain.ChangeOpUpdated, ev.Op)

	_, err = decodeChange(`not json`)
	assert.Error(t, err)

	_, err = decodeChange(`{"collection":"loans"}`)
	assert.Error(t, err)
}

func TestChangeListenerDispatch(t *testing.T) {
	hub := events.NewHub(4)
	sub := hub.Subscribe(domain.CollectionBooks)
	defer sub.Close()

	l := NewChangeListener("postgres://unused", hub)
	l.dispatch(`{"collection":"books","id":"b1","op":"deleted"}`)
	l.dispatch(`garbage`)

	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, "b1", ev.ID)
	assert.Equal(t, domain.ChangeOpDeleted, ev.Op)
}
