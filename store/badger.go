package store

import (
	badger "github.com/dgraph-io/badger/v2"

	"github.com/RelayProject/btcrelay/relay"
)

// Badger is the persistent KV backend, grounded on the teacher's own
// dgraph-io/badger/v2 dependency and on the Txn/Iterator/prefix-Seek idiom
// shown in the pack's Badger example (188b8cc7_Charizard13-badger).
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a Badger database at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own log output is discarded
	db, err := badger.Open(opts)
	if err != nil {
		return nil, relay.NewError("store.OpenBadger", relay.KindStorage, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return notFound("Badger.Get")
		}
		if err != nil {
			return relay.NewError("Badger.Get", relay.KindStorage, err)
		}
		out, err = item.ValueCopy(nil)
		if err != nil {
			return relay.NewError("Badger.Get", relay.KindStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) Put(key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return relay.NewError("Badger.Put", relay.KindStorage, err)
	}
	return nil
}

func (b *Badger) Delete(key []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return relay.NewError("Badger.Delete", relay.KindStorage, err)
	}
	return nil
}

func (b *Badger) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return relay.NewError("Badger.IteratePrefix", relay.KindStorage, err)
			}
			if err := fn(key, val); err != nil {
				if err == ErrStopIteration {
					return nil
				}
				return err
			}
		}
		return nil
	})
	return err
}

func (b *Badger) NewBatch() Batch { return &badgerBatch{wb: b.db.NewWriteBatch()} }

func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return relay.NewError("Badger.Close", relay.KindStorage, err)
	}
	return nil
}

// badgerBatch adapts badger.WriteBatch to the store.Batch contract. Unlike
// badger.Txn (which is size-bounded), WriteBatch is built for exactly this
// "buffer then flush atomically" use (spec §4.B).
type badgerBatch struct {
	wb      *badger.WriteBatch
	lastErr error
}

func (b *badgerBatch) Put(key, value []byte) {
	if err := b.wb.Set(key, value); err != nil && b.lastErr == nil {
		b.lastErr = err
	}
}

func (b *badgerBatch) Delete(key []byte) {
	if err := b.wb.Delete(key); err != nil && b.lastErr == nil {
		b.lastErr = err
	}
}

func (b *badgerBatch) Commit() error {
	if b.lastErr != nil {
		b.wb.Cancel()
		return relay.NewError("badgerBatch.Commit", relay.KindStorage, b.lastErr)
	}
	if err := b.wb.Flush(); err != nil {
		return relay.NewError("badgerBatch.Commit", relay.KindStorage, err)
	}
	return nil
}

func (b *badgerBatch) Abort() { b.wb.Cancel() }
