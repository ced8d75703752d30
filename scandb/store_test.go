package scandb

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/silentpay/spd/silentpayments"
	"github.com/stretchr/testify/require"
)

func testResult(txByte byte, vout uint32, label *uint32) silentpayments.ScanResult {
	r := silentpayments.ScanResult{
		TxHash:      chainhash.Hash{txByte},
		OutputIndex: vout,
		Address:     fmt.Sprintf("sp1test%02x%d", txByte, vout),
		Label:       label,
	}
	r.PrivKeyTweak[0] = txByte
	r.PrivKeyTweak[31] = byte(vout)
	r.PubKey[0] = 0xaa
	r.PubKey[31] = byte(vout)
	return r
}

func openStore(t *testing.T, dbType string) *ResultStore {
	t.Helper()

	store, err := Open(dbType, filepath.Join(t.TempDir(), dbType))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func requireResults(t *testing.T, want, got []silentpayments.ScanResult) {
	t.Helper()

	require.Equal(t, want, got, "want %v\ngot %v", spew.Sdump(want),
		spew.Sdump(got))
}

func TestResultStore(t *testing.T) {
	t.Parallel()

	for _, dbType := range SupportedDrivers() {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			t.Parallel()

			store := openStore(t, dbType)

			label := uint32(7)
			results := []silentpayments.ScanResult{
				testResult(2, 1, nil),
				testResult(1, 300, nil),
				testResult(1, 2, &label),
				testResult(1, 0, nil),
			}
			require.NoError(t, store.PutResults(results))

			// Lookup by outpoint.
			got, err := store.FetchResult(results[2].OutPoint())
			require.NoError(t, err)
			requireResults(t, results[2:3],
				[]silentpayments.ScanResult{*got})

			// Results of one transaction come back by output index,
			// using big endian keys so 300 sorts after 2.
			txResults, err := store.ResultsForTx(chainhash.Hash{1})
			require.NoError(t, err)
			requireResults(t, []silentpayments.ScanResult{
				results[3], results[2], results[1],
			}, txResults)

			none, err := store.ResultsForTx(chainhash.Hash{3})
			require.NoError(t, err)
			require.Empty(t, none)

			var all []silentpayments.ScanResult
			err = store.ForEachResult(func(r *silentpayments.ScanResult) error {
				all = append(all, *r)
				return nil
			})
			require.NoError(t, err)
			requireResults(t, []silentpayments.ScanResult{
				results[3], results[2], results[1], results[0],
			}, all)

			// Overwrite drops the label.
			replaced := testResult(1, 2, nil)
			require.NoError(t, store.PutResults(
				[]silentpayments.ScanResult{replaced},
			))
			got, err = store.FetchResult(replaced.OutPoint())
			require.NoError(t, err)
			require.Nil(t, got.Label)

			// Deletion, including of a missing result.
			require.NoError(t, store.DeleteResult(replaced.OutPoint()))
			require.NoError(t, store.DeleteResult(replaced.OutPoint()))
			_, err = store.FetchResult(replaced.OutPoint())
			require.ErrorIs(t, err, ErrResultNotFound)

			require.NoError(t, store.PutResults(nil))
		})
	}
}

func TestForEachResultStops(t *testing.T) {
	t.Parallel()

	store := openStore(t, "leveldb")
	require.NoError(t, store.PutResults([]silentpayments.ScanResult{
		testResult(1, 0, nil),
		testResult(1, 1, nil),
		testResult(1, 2, nil),
	}))

	errStop := errors.New("stop")
	calls := 0
	err := store.ForEachResult(func(*silentpayments.ScanResult) error {
		calls++
		if calls == 2 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	require.Equal(t, 2, calls)
}

func TestCorruptRecord(t *testing.T) {
	t.Parallel()

	for _, dbType := range SupportedDrivers() {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			t.Parallel()

			store := openStore(t, dbType)

			op := wire.OutPoint{Hash: chainhash.Hash{9}, Index: 4}
			tx, err := store.db.Transaction()
			require.NoError(t, err)
			require.NoError(t, tx.Put(resultKey(&op), []byte{0, 1}))
			require.NoError(t, tx.Commit())

			_, err = store.FetchResult(op)
			require.ErrorIs(t, err, ErrCorruptRecord)

			_, err = store.ResultsForTx(op.Hash)
			require.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestReopen(t *testing.T) {
	t.Parallel()

	for _, dbType := range SupportedDrivers() {
		dbType := dbType
		t.Run(dbType, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "results")
			result := testResult(5, 1, nil)

			store, err := Open(dbType, path)
			require.NoError(t, err)
			require.NoError(t, store.PutResults(
				[]silentpayments.ScanResult{result},
			))
			require.NoError(t, store.Close())

			store, err = Open(dbType, path)
			require.NoError(t, err)
			defer store.Close()

			got, err := store.FetchResult(result.OutPoint())
			require.NoError(t, err)
			require.Equal(t, result, *got)
		})
	}
}

func TestOpenUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Open("bogus", t.TempDir())
	require.ErrorIs(t, err, ErrUnknownDBType)

	var storeErr Error
	require.ErrorAs(t, err, &storeErr)
	require.Contains(t, storeErr.Description, "bogus")

	require.Equal(t, []string{"leveldb", "pebble"}, SupportedDrivers())
}
