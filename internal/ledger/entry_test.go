package ledger

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Validate(t *testing.T) {
	src := uuid.New()
	dest := uuid.New()

	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{
			name: "valid transfer",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(src),
				Destination:    dest,
				Amount:         100,
			},
		},
		{
			name: "valid deposit",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         DepositSource(),
				Destination:    dest,
				Amount:         1,
			},
		},
		{
			name: "missing idempotency key",
			entry: Entry{
				Source:      UserSource(src),
				Destination: dest,
				Amount:      100,
			},
			wantErr: ErrMissingIdempotencyKey,
		},
		{
			name: "missing destination",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(src),
				Amount:         100,
			},
			wantErr: ErrMissingDestination,
		},
		{
			name: "zero amount",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(src),
				Destination:    dest,
			},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name: "negative amount",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(src),
				Destination:    dest,
				Amount:         -5,
			},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name: "nil source user",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(uuid.Nil),
				Destination:    dest,
				Amount:         100,
			},
			wantErr: ErrMissingSource,
		},
		{
			name: "self transfer",
			entry: Entry{
				IdempotencyKey: uuid.New(),
				Source:         UserSource(dest),
				Destination:    dest,
				Amount:         100,
			},
			wantErr: ErrSameSourceDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSource(t *testing.T) {
	t.Run("deposit", func(t *testing.T) {
		s := DepositSource()
		assert.True(t, s.IsDeposit())

		id, ok := s.UserID()
		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("user", func(t *testing.T) {
		want := uuid.New()
		s := UserSource(want)
		assert.False(t, s.IsDeposit())

		id, ok := s.UserID()
		assert.True(t, ok)
		assert.Equal(t, want, id)
	})

	t.Run("zero value is deposit", func(t *testing.T) {
		var s Source
		assert.True(t, s.IsDeposit())
	})
}

func TestLockOrder(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	c := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	t.Run("sorts ascending", func(t *testing.T) {
		got := lockOrder(c, b, a)
		require.Equal(t, []uuid.UUID{a, b, c}, got)
	})

	t.Run("already sorted", func(t *testing.T) {
		got := lockOrder(a, b)
		require.Equal(t, []uuid.UUID{a, b}, got)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []uuid.UUID{c, a}
		_ = lockOrder(in...)
		assert.Equal(t, []uuid.UUID{c, a}, in)
	})

	t.Run("order is bytewise", func(t *testing.T) {
		got := lockOrder(b, c, a)
		for i := 1; i < len(got); i++ {
			assert.True(t, bytes.Compare(got[i-1][:], got[i][:]) < 0)
		}
	})
}
