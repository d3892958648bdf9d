package ringtrack_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/emberlog/internal/domain"
	"github.com/emberlog/emberlog/internal/ringtrack"
)

func failedRequest(i int) domain.RequestEvent {
	return domain.RequestEvent{
		Method: "GET",
		Path:   fmt.Sprintf("/orders/%d", i),
		Status: 500,
	}
}

func TestRecordOverwritesOldest(t *testing.T) {
	t.Parallel()

	ring := ringtrack.New(1000, ringtrack.Options{})
	for i := 0; i < 1500; i++ {
		ring.Record(failedRequest(i))
	}

	snap := ring.Snapshot()
	require.Len(t, snap, 1000)
	assert.Equal(t, "/orders/1499", snap[0].Path)
	assert.Equal(t, "/orders/500", snap[999].Path)
}

func TestRecordSkipsSuccessByDefault(t *testing.T) {
	t.Parallel()

	ring := ringtrack.New(10, ringtrack.Options{})
	ring.Record(domain.RequestEvent{Path: "/ok", Status: 200})
	ring.Record(domain.RequestEvent{Path: "/created", Status: 201})
	ring.Record(domain.RequestEvent{Path: "/missing", Status: 404})
	ring.Record(domain.RequestEvent{Path: "/broken", Status: 500})

	snap := ring.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "/broken", snap[0].Path)
	assert.Equal(t, "/missing", snap[1].Path)
}

func TestRecordTrackAll(t *testing.T) {
	t.Parallel()

	ring := ringtrack.New(10, ringtrack.Options{TrackAll: true})
	ring.Record(domain.RequestEvent{Path: "/ok", Status: 200})
	ring.Record(domain.RequestEvent{Path: "/broken", Status: 500})

	assert.Equal(t, 2, ring.Len())
}

func TestHeadersStrippedUnlessEnabled(t *testing.T) {
	t.Parallel()

	headers := map[string]string{"X-Request-Id": "abc"}

	bare := ringtrack.New(4, ringtrack.Options{})
	bare.Record(domain.RequestEvent{Path: "/a", Status: 500, Headers: headers})
	require.Len(t, bare.Snapshot(), 1)
	assert.Nil(t, bare.Snapshot()[0].Headers)

	capturing := ringtrack.New(4, ringtrack.Options{CaptureHeaders: true})
	capturing.Record(domain.RequestEvent{Path: "/a", Status: 500, Headers: headers})
	assert.Equal(t, headers, capturing.Snapshot()[0].Headers)
}

func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	ring := ringtrack.New(4, ringtrack.Options{})
	ring.Record(failedRequest(1))

	snap := ring.Snapshot()
	ring.Record(failedRequest(2))

	require.Len(t, snap, 1)
	assert.Equal(t, "/orders/1", snap[0].Path)
}
