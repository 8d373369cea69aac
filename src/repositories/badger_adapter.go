package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
)

const badgerRecordPrefix = "rec/"

const badgerClaimRetries = 5

// BadgerAdapter persists records as JSON values under rec/<global id>.
// Queries scan the prefix; there are no secondary indexes.
type BadgerAdapter struct {
	logger *slog.Logger
	db     *badger.DB
}

func NewBadgerAdapter(logger *slog.Logger, db *badger.DB) *BadgerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerAdapter{logger: logger, db: db}
}

func badgerKey(id string) []byte {
	return []byte(badgerRecordPrefix + id)
}

func (a *BadgerAdapter) Create(ctx context.Context, rec entities.Record) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAdapterError("BadgerAdapter.Create", err)
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return domain.NewAdapterError("BadgerAdapter.Create", fmt.Errorf("failed to marshal record: %w", err))
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(rec.Metadata.GlobalID))
		if err == nil {
			return fmt.Errorf("record %s already exists", rec.Metadata.GlobalID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(rec.Metadata.GlobalID), value)
	})
	if err != nil {
		return domain.NewAdapterError("BadgerAdapter.Create", err)
	}

	a.logger.Debug("BadgerAdapter.Create", "id", rec.Metadata.GlobalID, "class", rec.Metadata.ClassName)
	return nil
}

func (a *BadgerAdapter) FindByID(ctx context.Context, className string, id string) (entities.Record, error) {
	if err := ctx.Err(); err != nil {
		return entities.Record{}, domain.NewAdapterError("BadgerAdapter.FindByID", err)
	}

	var rec entities.Record
	found := false

	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return entities.Record{}, domain.NewAdapterError("BadgerAdapter.FindByID", err)
	}

	if !found || (className != "" && rec.Metadata.ClassName != className) {
		return entities.Record{}, &domain.NotFoundError{ClassName: className, ID: id}
	}
	return normalizeRecord(rec), nil
}

func (a *BadgerAdapter) Query(ctx context.Context, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAdapterError("BadgerAdapter.Query", err)
	}

	normalized, err := pf.Normalize()
	if err != nil {
		return nil, domain.NewAdapterError("BadgerAdapter.Query", err)
	}

	var results []entities.Record
	err = a.db.View(func(txn *badger.Txn) error {
		results, err = scanRecords(txn, mf, normalized, ids)
		return err
	})
	if err != nil {
		return nil, domain.NewAdapterError("BadgerAdapter.Query", err)
	}

	return results, nil
}

func scanRecords(txn *badger.Txn, mf domain.MetadataFilter, pf domain.PropsFilter, ids []string) ([]entities.Record, error) {
	results := make([]entities.Record, 0)
	prefix := []byte(badgerRecordPrefix)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec entities.Record
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
		}

		rec = normalizeRecord(rec)
		if domain.MatchesRecord(rec, mf, pf, ids) {
			results = append(results, rec)
		}
	}

	sortRecords(results)
	return results, nil
}

func (a *BadgerAdapter) Save(ctx context.Context, rec entities.Record) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAdapterError("BadgerAdapter.Save", err)
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return domain.NewAdapterError("BadgerAdapter.Save", fmt.Errorf("failed to marshal record: %w", err))
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.Metadata.GlobalID), value)
	})
	if err != nil {
		return domain.NewAdapterError("BadgerAdapter.Save", err)
	}
	return nil
}

func (a *BadgerAdapter) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewAdapterError("BadgerAdapter.Delete", err)
	}

	deleted := false
	err := a.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		deleted = true
		return txn.Delete(badgerKey(id))
	})
	if err != nil {
		return false, domain.NewAdapterError("BadgerAdapter.Delete", err)
	}

	return deleted, nil
}

// ClaimNext runs inside one read-write transaction; a concurrent claimer makes the commit fail
// with ErrConflict and the claim is retried.
func (a *BadgerAdapter) ClaimNext(ctx context.Context, className string, pf domain.PropsFilter, patch entities.Props) (entities.Record, bool, error) {
	normalized, err := pf.Normalize()
	if err != nil {
		return entities.Record{}, false, domain.NewAdapterError("BadgerAdapter.ClaimNext", err)
	}

	for attempt := 0; attempt < badgerClaimRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return entities.Record{}, false, domain.NewAdapterError("BadgerAdapter.ClaimNext", err)
		}

		var claimed entities.Record
		found := false

		err = a.db.Update(func(txn *badger.Txn) error {
			candidates, err := scanRecords(txn, domain.MetadataFilter{entities.FieldClassName: className}, normalized, nil)
			if err != nil || len(candidates) == 0 {
				return err
			}

			claimed = candidates[0]
			claimed.Props = claimed.Props.Merge(patch)

			value, err := json.Marshal(claimed)
			if err != nil {
				return err
			}

			found = true
			return txn.Set(badgerKey(claimed.Metadata.GlobalID), value)
		})

		if errors.Is(err, badger.ErrConflict) {
			a.logger.Debug("BadgerAdapter.ClaimNext - conflict, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return entities.Record{}, false, domain.NewAdapterError("BadgerAdapter.ClaimNext", err)
		}

		return claimed, found, nil
	}

	return entities.Record{}, false, domain.NewAdapterError("BadgerAdapter.ClaimNext", badger.ErrConflict)
}

func (a *BadgerAdapter) QueryDescendantsByClassName(ctx context.Context, id string, targetClassName string, depth int) ([]entities.Record, error) {
	return walkGraph(ctx, a.metadataQuery, id, targetClassName, depth, walkDescendants)
}

func (a *BadgerAdapter) QueryAncestorsByClassName(ctx context.Context, id string, sourceClassName string, depth int) ([]entities.Record, error) {
	return walkGraph(ctx, a.metadataQuery, id, sourceClassName, depth, walkAncestors)
}

func (a *BadgerAdapter) metadataQuery(ctx context.Context, mf domain.MetadataFilter) ([]entities.Record, error) {
	return a.Query(ctx, mf, nil, nil)
}

func (a *BadgerAdapter) Close() error {
	return a.db.Close()
}

// normalizeRecord guarantees a non-nil props map after decoding.
func normalizeRecord(rec entities.Record) entities.Record {
	if rec.Props == nil {
		rec.Props = entities.Props{}
	}
	return rec
}
