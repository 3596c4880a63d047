// Package cacheclient implements the fingerprint and selector protocol on top of a
// content-addressed blob store.
package cacheclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/afero"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	selectorPrefix = "sel/"
	hashListPrefix = "chl/"
)

// Options tunes a Client.
type Options struct {
	// MaxSelectors caps the selector bucket of one weak fingerprint.
	MaxSelectors int
	// Parallelism bounds output hashing, upload and placement.
	Parallelism int
	// FS is the workspace file system outputs are read from and placed into.
	FS afero.Fs
}

// StrongFunc recomputes the strong fingerprint payload of a stored path set.
type StrongFunc func(pathSet *domain.PathSet) []byte

// Hit is a successful lookup.
type Hit struct {
	Result   *domain.NodeBuildResult
	Selector domain.Selector
	PathSet  *domain.PathSet
}

// Client stores and looks up node build results. It is safe for concurrent use.
type Client struct {
	store  ports.BlobStore
	codec  ports.Codec
	hasher ports.ContentHasher
	logger ports.Logger
	tracer ports.Tracer
	opts   Options

	hashLocks   keyedMutex
	bucketLocks keyedMutex
}

// New creates a Client. Zero options fall back to defaults.
func New(
	store ports.BlobStore,
	codec ports.Codec,
	hasher ports.ContentHasher,
	logger ports.Logger,
	tracer ports.Tracer,
	opts Options,
) *Client {
	if opts.MaxSelectors <= 0 {
		opts.MaxSelectors = domain.DefaultMaxSelectors
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	return &Client{
		store:  store,
		codec:  codec,
		hasher: hasher,
		logger: logger,
		tracer: tracer,
		opts:   opts,
	}
}

func selectorKey(weak domain.Fingerprint) string {
	return selectorPrefix + weak.Hex()
}

func hashListKey(weak domain.Fingerprint, sel domain.Selector) string {
	return hashListPrefix + weak.Hex() + "/" + sel.Key()
}

// Lookup finds a stored result for weak. Missing or unreadable entries are misses and
// return a nil Hit. Stored state that cannot be decoded or contradicts itself returns
// domain.ErrCacheIntegrity.
func (c *Client) Lookup(ctx context.Context, weak domain.Fingerprint, strong StrongFunc) (*Hit, error) {
	if weak == nil {
		return nil, nil
	}

	ctx, span := c.tracer.Start(ctx, "cache.lookup", ports.WithKind("cache"))
	defer span.End()
	span.SetAttribute("weak", weak.Hex())

	hit, err := c.lookup(ctx, weak, strong)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("hit", hit != nil)
	return hit, nil
}

func (c *Client) lookup(ctx context.Context, weak domain.Fingerprint, strong StrongFunc) (*Hit, error) {
	bucket, found, err := c.readBucket(ctx, weak)
	if err != nil {
		if errors.Is(err, domain.ErrCacheIntegrity) {
			return nil, err
		}
		c.logger.Debug(fmt.Sprintf("cache miss for %s: %v", weak.Hex(), err))
		return nil, nil
	}
	if !found {
		c.logger.Debug("cache miss for " + weak.Hex() + ": no selectors")
		return nil, nil
	}

	sel, pathSet, ok := c.matchSelector(ctx, bucket, strong)
	if !ok {
		c.logger.Debug(fmt.Sprintf("cache miss for %s: none of %d selectors matched", weak.Hex(), len(bucket.Selectors)))
		return nil, nil
	}

	result, err := c.readResult(ctx, weak, sel)
	if err != nil || result == nil {
		return nil, err
	}
	return &Hit{Result: result, Selector: sel, PathSet: pathSet}, nil
}

// matchSelector returns the first selector whose path set replays to its stored payload.
func (c *Client) matchSelector(
	ctx context.Context,
	bucket *domain.SelectorBucket,
	strong StrongFunc,
) (domain.Selector, *domain.PathSet, bool) {
	for _, sel := range bucket.Selectors {
		if sel.IsEmpty() {
			return sel, nil, true
		}

		pathSet, err := c.readPathSet(ctx, sel.PathSetHash)
		if err != nil {
			c.logger.Debug(fmt.Sprintf("skipping selector %s: %v", sel.Key(), err))
			continue
		}
		payload := strong(pathSet)
		if payload != nil && bytes.Equal(payload, sel.Output) {
			return sel, pathSet, true
		}
	}
	return domain.Selector{}, nil, false
}

// readResult fetches the content hash list and metadata for a matched selector.
func (c *Client) readResult(ctx context.Context, weak domain.Fingerprint, sel domain.Selector) (*domain.NodeBuildResult, error) {
	key := hashListKey(weak, sel)
	data, err := c.readKey(ctx, key)
	if err != nil {
		c.logger.Debug(fmt.Sprintf("cache miss for %s: %v", weak.Hex(), err))
		return nil, nil
	}

	var list domain.ContentHashList
	if err := c.codec.Unmarshal(data, &list); err != nil {
		return nil, integrity(err, "decode content hash list", key)
	}
	if len(list.Hashes) == 0 {
		return nil, integrity(nil, "content hash list has no entries", key)
	}

	meta, err := c.readHash(ctx, list.Hashes[0])
	if err != nil {
		return nil, integrity(err, "metadata missing", key)
	}
	var result domain.NodeBuildResult
	if err := c.codec.Unmarshal(meta, &result); err != nil {
		return nil, integrity(err, "decode node build result", key)
	}
	if result.Outputs == nil {
		result.Outputs = map[string]domain.ContentHash{}
	}

	outputs := result.OutputHashes()
	if len(outputs) != len(list.Hashes)-1 {
		return nil, integrity(nil, "output count does not match content hash list", key)
	}
	for i, h := range outputs {
		if h != list.Hashes[i+1] {
			return nil, integrity(nil, "output hash does not match content hash list", key)
		}
	}
	return &result, nil
}

// Store persists result under weak and the selector derived from pathSet and strong.
// A nil pathSet or strong payload stores under the empty selector. Storing a record
// that already exists only makes sure its selector is registered.
func (c *Client) Store(
	ctx context.Context,
	weak domain.Fingerprint,
	pathSet *domain.PathSet,
	strong []byte,
	result *domain.NodeBuildResult,
	root string,
) (err error) {
	if weak == nil || result == nil {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "cache.store", ports.WithKind("cache"))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()
	span.SetAttribute("weak", weak.Hex())
	span.SetAttribute("outputs", len(result.Outputs))

	sel := domain.EmptySelector
	if pathSet != nil && strong != nil {
		psHash, err := c.putRecord(ctx, pathSet.Record())
		if err != nil {
			return storeErr(err, "put path set")
		}
		sel = domain.Selector{PathSetHash: psHash, Output: strong}
	}

	key := hashListKey(weak, sel)
	exists, err := c.store.HasKey(ctx, key)
	if err != nil {
		return storeErr(err, "check content hash list")
	}
	if exists {
		c.logger.Debug("cache record for " + weak.Hex() + " already stored")
		return c.addSelector(ctx, weak, sel)
	}

	if err := c.putOutputs(ctx, root, result); err != nil {
		return storeErr(err, "put outputs")
	}

	metaHash, err := c.putRecord(ctx, result)
	if err != nil {
		return storeErr(err, "put metadata")
	}

	list := domain.ContentHashList{Hashes: append([]domain.ContentHash{metaHash}, result.OutputHashes()...)}
	data, err := c.codec.Marshal(list)
	if err != nil {
		return storeErr(err, "encode content hash list")
	}
	if err := c.store.PutWithKey(ctx, key, bytes.NewReader(data)); err != nil {
		return storeErr(err, "put content hash list")
	}

	if err := ctx.Err(); err != nil {
		return storeErr(err, "register selector")
	}
	return c.addSelector(ctx, weak, sel)
}

// Selectors returns the selectors stored for weak, most recent first.
func (c *Client) Selectors(ctx context.Context, weak domain.Fingerprint) ([]domain.Selector, error) {
	bucket, found, err := c.readBucket(ctx, weak)
	if err != nil || !found {
		return nil, err
	}
	return bucket.Selectors, nil
}

// addSelector prepends sel to the bucket of weak unless it is already present. The
// bucket keeps at most MaxSelectors entries.
func (c *Client) addSelector(ctx context.Context, weak domain.Fingerprint, sel domain.Selector) error {
	unlock := c.bucketLocks.Lock(weak.Hex())
	defer unlock()

	bucket, _, err := c.readBucket(ctx, weak)
	if err != nil {
		if errors.Is(err, domain.ErrCacheIntegrity) {
			return err
		}
		return storeErr(err, "read selector bucket")
	}
	if bucket.Contains(sel) {
		return nil
	}

	selectors := make([]domain.Selector, 0, min(len(bucket.Selectors)+1, c.opts.MaxSelectors))
	selectors = append(selectors, sel)
	for _, s := range bucket.Selectors {
		if len(selectors) == c.opts.MaxSelectors {
			c.logger.Debug(fmt.Sprintf("selector bucket for %s is full", weak.Hex()))
			break
		}
		selectors = append(selectors, s)
	}

	data, err := c.codec.Marshal(domain.SelectorBucket{Selectors: selectors})
	if err != nil {
		return storeErr(err, "encode selector bucket")
	}
	if err := c.store.PutWithKey(ctx, selectorKey(weak), bytes.NewReader(data)); err != nil {
		return storeErr(err, "put selector bucket")
	}
	return nil
}

// readBucket returns the selector bucket of weak. found is false when none is stored.
func (c *Client) readBucket(ctx context.Context, weak domain.Fingerprint) (*domain.SelectorBucket, bool, error) {
	data, err := c.readKey(ctx, selectorKey(weak))
	if errors.Is(err, domain.ErrBlobNotFound) {
		return &domain.SelectorBucket{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var bucket domain.SelectorBucket
	if err := c.codec.Unmarshal(data, &bucket); err != nil {
		return nil, false, integrity(err, "decode selector bucket", selectorKey(weak))
	}
	return &bucket, true, nil
}

func (c *Client) readPathSet(ctx context.Context, h domain.ContentHash) (*domain.PathSet, error) {
	data, err := c.readHash(ctx, h)
	if err != nil {
		return nil, err
	}
	var record domain.PathSetRecord
	if err := c.codec.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record.PathSet(), nil
}

// putRecord encodes v and stores it by its content hash.
func (c *Client) putRecord(ctx context.Context, v any) (domain.ContentHash, error) {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return domain.ContentHash{}, err
	}
	h := c.hasher.HashBytes(data)
	if err := c.putBlob(ctx, h, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}); err != nil {
		return domain.ContentHash{}, err
	}
	return h, nil
}

// putBlob uploads the content produced by open unless h is already stored. Uploads of
// the same hash are serialized.
func (c *Client) putBlob(ctx context.Context, h domain.ContentHash, open func() (io.ReadCloser, error)) error {
	unlock := c.hashLocks.Lock(h.String())
	defer unlock()

	ok, err := c.store.HasHash(ctx, h)
	if err != nil || ok {
		return err
	}

	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // Read-only source
	return c.store.PutByHash(ctx, h, rc)
}

func (c *Client) readKey(ctx context.Context, key string) ([]byte, error) {
	rc, err := c.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // Read-only stream
	return io.ReadAll(rc)
}

func (c *Client) readHash(ctx context.Context, h domain.ContentHash) ([]byte, error) {
	rc, err := c.store.GetStream(ctx, h)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // Read-only stream
	return io.ReadAll(rc)
}

func integrity(cause error, reason, key string) error {
	err := zerr.Wrap(domain.ErrCacheIntegrity, reason)
	if cause != nil {
		err = zerr.With(err, "cause", cause.Error())
	}
	return zerr.With(err, "key", key)
}

func storeErr(err error, step string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrCacheStore.Error()), "step", step)
}
