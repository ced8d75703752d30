package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSuiteEngine runs the behaviour every backend must share.  newEngine is
// called once per subtest and must return an empty store.
func TestSuiteEngine(t *testing.T, newEngine func() Engine) {
	t.Run("TransactionSnapshot", func(t *testing.T) {
		db := newEngine()
		defer db.Close()

		tx, err := db.Transaction()
		require.NoError(t, err)

		key, value := []byte("key1"), []byte("value1")
		require.NoError(t, tx.Put(key, value))

		// Uncommitted writes are invisible.
		snap, err := db.Snapshot()
		require.NoError(t, err)

		has, err := snap.Has(key)
		require.NoError(t, err)
		require.False(t, has)

		got, err := snap.Get(key)
		require.ErrorIs(t, err, ErrNotFound)
		require.Nil(t, got)
		snap.Release()

		require.NoError(t, tx.Commit())

		snap, err = db.Snapshot()
		require.NoError(t, err)
		defer snap.Release()

		has, err = snap.Has(key)
		require.NoError(t, err)
		require.True(t, has)

		got, err = snap.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, got)
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		db := newEngine()
		defer db.Close()

		put(t, db, map[string]string{"a": "1"})

		snap, err := db.Snapshot()
		require.NoError(t, err)
		defer snap.Release()

		put(t, db, map[string]string{"a": "2", "b": "3"})

		got, err := snap.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), got)

		has, err := snap.Has([]byte("b"))
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("Delete", func(t *testing.T) {
		db := newEngine()
		defer db.Close()

		put(t, db, map[string]string{"a": "1", "b": "2"})

		tx, err := db.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("a")))
		require.NoError(t, tx.Commit())

		snap, err := db.Snapshot()
		require.NoError(t, err)
		defer snap.Release()

		has, err := snap.Has([]byte("a"))
		require.NoError(t, err)
		require.False(t, has)

		has, err = snap.Has([]byte("b"))
		require.NoError(t, err)
		require.True(t, has)
	})

	t.Run("Iterator", func(t *testing.T) {
		tests := []struct {
			kvs  map[string]string
			r    *Range
			want [][2]string
		}{{
			kvs:  map[string]string{"key1": "v1", "key2": "v2", "key3": "v3"},
			r:    &Range{Start: []byte("key0"), Limit: []byte("key1")},
			want: nil,
		}, {
			kvs:  map[string]string{"key1": "v1", "key2": "v2", "key3": "v3"},
			r:    &Range{Start: []byte("key0"), Limit: []byte("key2")},
			want: [][2]string{{"key1", "v1"}},
		}, {
			kvs:  map[string]string{"key1": "v1", "key2": "v2", "key3": "v3"},
			r:    &Range{Start: []byte("key1"), Limit: []byte("key3")},
			want: [][2]string{{"key1", "v1"}, {"key2", "v2"}},
		}, {
			kvs:  map[string]string{"key1": "v1", "key2": "v2", "key3": "v3"},
			r:    &Range{Start: []byte("key10"), Limit: []byte("key30")},
			want: [][2]string{{"key2", "v2"}, {"key3", "v3"}},
		}, {
			kvs:  map[string]string{"key1": "v1", "key2": "v2"},
			r:    &Range{Start: []byte("key2"), Limit: []byte("key2")},
			want: nil,
		}, {
			kvs: map[string]string{
				"r10": "a", "r11": "b", "r20": "c", "s10": "d",
			},
			r:    BytesPrefix([]byte("r1")),
			want: [][2]string{{"r10", "a"}, {"r11", "b"}},
		}}

		for _, test := range tests {
			db := newEngine()
			put(t, db, test.kvs)

			snap, err := db.Snapshot()
			require.NoError(t, err)

			iter := snap.NewIterator(test.r)
			var got [][2]string
			for iter.Next() {
				got = append(got, [2]string{
					string(iter.Key()), string(iter.Value()),
				})
			}
			require.NoError(t, iter.Error())
			require.Equal(t, test.want, got)

			iter.Release()
			snap.Release()
			require.NoError(t, db.Close())
		}
	})

	t.Run("Close", func(t *testing.T) {
		db := newEngine()

		tx, err := db.Transaction()
		require.NoError(t, err)
		tx.Discard()
		tx.Discard()
		require.Error(t, tx.Commit())

		snap, err := db.Snapshot()
		require.NoError(t, err)

		iter := snap.NewIterator(&Range{})
		require.NoError(t, iter.Error())
		iter.Release()
		iter.Release()

		snap.Release()
		snap.Release()
		_, err = snap.Get([]byte("key"))
		require.Error(t, err)

		require.NoError(t, db.Close())
		require.Error(t, db.Close())

		_, err = db.Transaction()
		require.Error(t, err)

		_, err = db.Snapshot()
		require.Error(t, err)
	})
}

// put commits kvs in a single transaction.
func put(t *testing.T, db Engine, kvs map[string]string) {
	t.Helper()

	tx, err := db.Transaction()
	require.NoError(t, err)
	for k, v := range kvs {
		require.NoError(t, tx.Put([]byte(k), []byte(v)))
	}
	require.NoError(t, tx.Commit())
}
