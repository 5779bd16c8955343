// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianVision/services/vision/labels"
	storage "github.com/AleutianAI/AleutianVision/services/vision/storage/badger"
)

// detectionsSep separates a label field name from a per-detection attribute
// in a field deletion path, e.g. "predictions.detections.eval_iou".
const detectionsSep = ".detections."

// Store manages named datasets in a single BadgerDB instance.
//
// Key layout (dataset names must not contain '/'):
//
//	ds/<name>            dataset metadata
//	ds/<name>/s/<seq>    sample document, zero-padded insertion sequence
//	ds/<name>/id/<id>    sample ID -> sequence index
//	ds/<name>/e/<key>    evaluation run record
//
// Prefix iteration over ds/<name>/s/ yields samples in insertion order,
// which keeps scans deterministic.
//
// Thread Safety: Safe for concurrent use; each operation runs in its own
// transaction.
type Store struct {
	db *storage.DB
}

// NewStore creates a store backed by the given database.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Dataset is a handle to one named dataset.
//
// The handle caches the dataset's media type; samples are always read
// from and written to the store directly.
type Dataset struct {
	store     *Store
	name      string
	mediaType MediaType
}

// CreateDataset creates a new dataset with the given media type.
//
// Outputs:
//
//	*Dataset - Handle to the new dataset.
//	error - ErrInvalidName for malformed names, ErrDatasetExists if the
//	        name is taken.
func (s *Store) CreateDataset(ctx context.Context, name string, mediaType MediaType) (*Dataset, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if mediaType != MediaTypeImage && mediaType != MediaTypeVideo {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}

	meta := datasetMeta{
		Name:      name,
		MediaType: mediaType,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		key := metaKey(name)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s", ErrDatasetExists, name)
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		return putJSON(txn, key, &meta)
	})
	if err != nil {
		return nil, err
	}

	return &Dataset{store: s, name: name, mediaType: mediaType}, nil
}

// LoadDataset opens a handle to an existing dataset.
//
// Outputs:
//
//	*Dataset - Handle to the dataset.
//	error - ErrDatasetNotFound if the name is unknown.
func (s *Store) LoadDataset(ctx context.Context, name string) (*Dataset, error) {
	var meta datasetMeta
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		return getJSON(txn, metaKey(name), &meta)
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &Dataset{store: s, name: name, mediaType: meta.MediaType}, nil
}

// ListDatasets returns the names of all datasets, in key order.
func (s *Store) ListDatasets(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(prefixIterOpts([]byte("ds/")))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			name := strings.TrimPrefix(key, "ds/")
			if !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteDataset removes a dataset and all its samples and evaluation records.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(metaKey(name)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
		} else if err != nil {
			return err
		}

		// The bare meta key plus the name's key namespace; a prefix
		// without the trailing separator would also sweep datasets whose
		// names extend this one.
		keys := [][]byte{metaKey(name)}
		it := txn.NewIterator(prefixIterOpts([]byte("ds/" + name + "/")))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// MediaType returns the dataset's media type.
func (d *Dataset) MediaType() MediaType {
	return d.mediaType
}

// AddSample appends a sample to the dataset.
//
// Description:
//
//	Assigns a fresh UUID when the sample has no ID, appends the sample at
//	the end of the insertion order, and indexes it by ID.
//
// Outputs:
//
//	error - Non-nil if the dataset is gone or the write fails.
func (d *Dataset) AddSample(ctx context.Context, sample *Sample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}

	return d.store.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		var meta datasetMeta
		if err := getJSON(txn, metaKey(d.name), &meta); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrDatasetNotFound, d.name)
			}
			return err
		}

		seq := meta.NextSeq
		meta.NextSeq++
		if err := putJSON(txn, metaKey(d.name), &meta); err != nil {
			return err
		}

		if err := putJSON(txn, d.sampleKey(seq), sample); err != nil {
			return err
		}
		return txn.Set(d.idKey(sample.ID), []byte(strconv.FormatUint(seq, 10)))
	})
}

// GetSample returns the sample with the given ID.
//
// Outputs:
//
//	*Sample - The full sample document.
//	error - ErrSampleNotFound if the ID is unknown.
func (d *Dataset) GetSample(ctx context.Context, id string) (*Sample, error) {
	var sample Sample
	err := d.store.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		seq, err := d.lookupSeq(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, d.sampleKey(seq), &sample)
	})
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// Count returns the number of samples in the dataset.
func (d *Dataset) Count(ctx context.Context) (int, error) {
	n := 0
	err := d.store.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := prefixIterOpts(d.samplePrefix())
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ForEachSample calls fn for every sample in insertion order.
//
// Description:
//
//	When fields is non-empty, the loaded sample views are restricted to
//	those label fields (frame-scoped names are matched against frame
//	labels); SaveSample on a restricted view writes back only the selected
//	label fields and the sample's count fields, so unselected fields are
//	never clobbered.
//
//	Iteration runs on a read snapshot; fn may save samples through
//	independent write transactions. fn errors abort the scan.
//
// Thread Safety: Safe for concurrent use.
func (d *Dataset) ForEachSample(ctx context.Context, fields []string, fn func(*Sample) error) error {
	return d.store.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(prefixIterOpts(d.samplePrefix()))
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scan cancelled: %w", err)
			}

			var sample Sample
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sample)
			})
			if err != nil {
				return fmt.Errorf("decode sample: %w", err)
			}

			restrictFields(&sample, fields)

			if err := fn(&sample); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSample writes a sample's modifications back to the store.
//
// Description:
//
//	Read-modify-write on the stored document: count fields are merged in,
//	and label fields carried by the sample view (sample-level and
//	per-frame) replace their stored counterparts. Fields absent from the
//	view are left untouched, so saving a field-restricted view is safe.
//
// Outputs:
//
//	error - ErrSampleNotFound if the sample was never added.
func (d *Dataset) SaveSample(ctx context.Context, sample *Sample) error {
	return d.store.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		seq, err := d.lookupSeq(txn, sample.ID)
		if err != nil {
			return err
		}

		var stored Sample
		if err := getJSON(txn, d.sampleKey(seq), &stored); err != nil {
			return err
		}

		for name, v := range sample.Counts {
			stored.SetCount(name, v)
		}
		for field, dets := range sample.Labels {
			stored.SetDetections(field, dets)
		}
		for _, frame := range sample.Frames {
			target := stored.frameByNumber(frame.Number)
			if target == nil {
				stored.AddFrame(frame)
				continue
			}
			for field, dets := range frame.Labels {
				target.SetDetections(field, dets)
			}
		}

		return putJSON(txn, d.sampleKey(seq), &stored)
	})
}

// DeleteSampleFields removes sample-level fields from every sample.
//
// Description:
//
//	Each path is either a count field name (e.g. "eval_tp") or a
//	per-detection attribute path "<field>.detections.<attr>", which
//	removes the attribute from every detection in that label field.
//	Unknown fields and attributes are ignored; other fields are left
//	unchanged.
func (d *Dataset) DeleteSampleFields(ctx context.Context, paths []string) error {
	return d.mutateAllSamples(ctx, func(sample *Sample) {
		for _, path := range paths {
			field, attr, ok := strings.Cut(path, detectionsSep)
			if !ok {
				delete(sample.Counts, path)
				continue
			}
			deleteDetectionAttr(sample.Labels[field], attr)
		}
	})
}

// DeleteFrameFields removes frame-level fields from every frame of every
// sample. Paths use the same shape as DeleteSampleFields, without the
// "frames." namespace prefix.
func (d *Dataset) DeleteFrameFields(ctx context.Context, paths []string) error {
	return d.mutateAllSamples(ctx, func(sample *Sample) {
		for _, frame := range sample.Frames {
			for _, path := range paths {
				field, attr, ok := strings.Cut(path, detectionsSep)
				if !ok {
					continue
				}
				deleteDetectionAttr(frame.Labels[field], attr)
			}
		}
	})
}

// RecordEvalRun stores an evaluation run record, silently replacing any
// existing record under the same key.
func (d *Dataset) RecordEvalRun(ctx context.Context, rec EvalRecord) error {
	return d.store.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return putJSON(txn, d.evalKeyKey(rec.EvalKey), &rec)
	})
}

// GetEvalRun returns the evaluation run record stored under the key.
//
// Outputs:
//
//	EvalRecord - The stored record.
//	error - ErrEvalRunNotFound if the key was never recorded or was cleared.
func (d *Dataset) GetEvalRun(ctx context.Context, evalKey string) (EvalRecord, error) {
	var rec EvalRecord
	err := d.store.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		return getJSON(txn, d.evalKeyKey(evalKey), &rec)
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return EvalRecord{}, fmt.Errorf("%w: %s", ErrEvalRunNotFound, evalKey)
	}
	if err != nil {
		return EvalRecord{}, err
	}
	return rec, nil
}

// DeleteEvalRun removes the evaluation run record stored under the key.
// The record alone is removed; derived sample fields are the caller's
// responsibility.
func (d *Dataset) DeleteEvalRun(ctx context.Context, evalKey string) error {
	return d.store.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(d.evalKeyKey(evalKey)); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrEvalRunNotFound, evalKey)
		} else if err != nil {
			return err
		}
		return txn.Delete(d.evalKeyKey(evalKey))
	})
}

// mutateAllSamples applies mutate to every sample document and writes the
// results back in a single transaction.
func (d *Dataset) mutateAllSamples(ctx context.Context, mutate func(*Sample)) error {
	type update struct {
		key    []byte
		sample *Sample
	}

	var updates []update
	err := d.store.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(prefixIterOpts(d.samplePrefix()))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var sample Sample
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sample)
			})
			if err != nil {
				return fmt.Errorf("decode sample: %w", err)
			}
			mutate(&sample)
			updates = append(updates, update{key: it.Item().KeyCopy(nil), sample: &sample})
		}
		return nil
	})
	if err != nil {
		return err
	}

	return d.store.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		for _, u := range updates {
			if err := putJSON(txn, u.key, u.sample); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Dataset) lookupSeq(txn *badgerdb.Txn, id string) (uint64, error) {
	item, err := txn.Get(d.idKey(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		seq, err = strconv.ParseUint(string(val), 10, 64)
		return err
	})
	return seq, err
}

func (d *Dataset) samplePrefix() []byte {
	return []byte("ds/" + d.name + "/s/")
}

func (d *Dataset) sampleKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("ds/%s/s/%016d", d.name, seq))
}

func (d *Dataset) idKey(id string) []byte {
	return []byte("ds/" + d.name + "/id/" + id)
}

func (d *Dataset) evalKeyKey(evalKey string) []byte {
	return []byte("ds/" + d.name + "/e/" + evalKey)
}

func metaKey(name string) []byte {
	return []byte("ds/" + name)
}

func prefixIterOpts(prefix []byte) badgerdb.IteratorOptions {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	return opts
}

func putJSON(txn *badgerdb.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badgerdb.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// restrictFields narrows a loaded sample view to the requested label fields.
// Frame-scoped names apply to frame labels after stripping the namespace
// prefix. An empty field list leaves the sample untouched.
func restrictFields(sample *Sample, fields []string) {
	if len(fields) == 0 {
		return
	}

	sampleFields := make(map[string]bool)
	frameFields := make(map[string]bool)
	for _, f := range fields {
		if name, ok := TrimFramesPrefix(f); ok {
			frameFields[name] = true
		} else {
			sampleFields[f] = true
		}
	}

	for name := range sample.Labels {
		if !sampleFields[name] {
			delete(sample.Labels, name)
		}
	}
	for _, frame := range sample.Frames {
		for name := range frame.Labels {
			if !frameFields[name] {
				delete(frame.Labels, name)
			}
		}
	}

	sample.selected = append([]string(nil), fields...)
}

// deleteDetectionAttr removes an attribute from every detection in the set.
// Nil sets are a no-op.
func deleteDetectionAttr(dets *labels.Detections, attr string) {
	if dets == nil {
		return
	}
	for _, det := range dets.Detections {
		det.DeleteAttribute(attr)
	}
}

func (s *Sample) frameByNumber(number int) *Frame {
	for _, f := range s.Frames {
		if f.Number == number {
			return f
		}
	}
	return nil
}
