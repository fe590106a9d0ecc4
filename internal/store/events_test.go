package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/domain/booking"
)

func TestFetchEvents(t *testing.T) {
	gw := &fakeGateway{events: []booking.Event{{ID: 1, Title: "Intro", Length: 30}}}
	s := NewEventStore(gw)

	require.NoError(t, s.FetchEvents(context.Background()))
	got := s.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "Intro", got[0].Title)
	assert.False(t, s.Loading())
	assert.NoError(t, s.Err())
}

func TestFetchEvents_FailurePreservesPriorState(t *testing.T) {
	gw := &fakeGateway{events: []booking.Event{{ID: 1}}}
	s := NewEventStore(gw)
	require.NoError(t, s.FetchEvents(context.Background()))

	gw.listErr = &calcom.APIError{Kind: calcom.KindRemoteFault, StatusCode: 503, Message: "unavailable"}
	require.Error(t, s.FetchEvents(context.Background()))

	assert.Len(t, s.Snapshot(), 1)
	assert.False(t, s.Loading())
	assert.Equal(t, calcom.KindRemoteFault, calcom.KindOf(s.Err()))
}
