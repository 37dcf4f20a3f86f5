package device

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/domain"
)

type memStore struct {
	byUUID map[string]*domain.Device
	puts   int
	getErr error
}

func (m *memStore) GetByUUID(_ context.Context, uuid string) (*domain.Device, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.byUUID[uuid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) Put(_ context.Context, d *domain.Device) error {
	m.puts++
	cp := *d
	m.byUUID[d.UUID] = &cp
	return nil
}

var now = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		existing  *domain.Device
		uuid      *string
		wantReuse bool
		wantUUID  string
		wantPuts  int
	}{
		{name: "no uuid mints one", uuid: nil, wantPuts: 1},
		{name: "unknown uuid is registered", uuid: ptr("inst-1"), wantUUID: "inst-1", wantPuts: 1},
		{name: "own device reused", existing: &domain.Device{DeviceID: "d1", UUID: "inst-1", UserID: "u1", Enable: true}, uuid: ptr("inst-1"), wantReuse: true, wantUUID: "inst-1"},
		{name: "own disabled device re-enabled", existing: &domain.Device{DeviceID: "d1", UUID: "inst-1", UserID: "u1"}, uuid: ptr(" inst-1 "), wantReuse: true, wantUUID: "inst-1", wantPuts: 1},
		{name: "foreign device not shared", existing: &domain.Device{DeviceID: "d9", UUID: "inst-1", UserID: "u2", Enable: true}, uuid: ptr("inst-1"), wantPuts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{byUUID: map[string]*domain.Device{}}
			if tt.existing != nil {
				store.byUUID[tt.existing.UUID] = tt.existing
			}

			d, err := Resolve(context.Background(), store, tt.uuid, "u1", now)

			require.NoError(t, err)
			assert.Equal(t, "u1", d.UserID)
			assert.True(t, d.Enable)
			assert.Equal(t, tt.wantPuts, store.puts)
			if tt.wantReuse {
				assert.Equal(t, "d1", d.DeviceID)
			} else {
				assert.NotEqual(t, "d1", d.DeviceID)
				assert.Equal(t, now, d.CreatedAt)
			}
			if tt.wantUUID != "" {
				assert.Equal(t, tt.wantUUID, d.UUID)
			} else {
				assert.NotEqual(t, "inst-1", d.UUID)
				assert.Len(t, d.UUID, 26)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(context.Background(), &memStore{byUUID: map[string]*domain.Device{}}, ptr(strings.Repeat("x", 200)), "u1", now)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	boom := errors.New("throttled")
	_, err = Resolve(context.Background(), &memStore{getErr: boom}, ptr("inst-1"), "u1", now)
	assert.ErrorIs(t, err, boom)
}
