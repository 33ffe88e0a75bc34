package content

import (
	"context"
	"fmt"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/multiformats/go-multihash"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// MaxBlockSize bounds a single stored object.
const MaxBlockSize = 4 << 20

// Store is the content-addressed storage collaborator.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Has(ctx context.Context, id string) (bool, error)
}

// BlockStore keeps content in an IPFS blockstore. Blocks are keyed by
// multihash, so CIDv0 and CIDv1 ids of the same bytes resolve alike.
type BlockStore struct {
	bs      blockstore.Blockstore
	version int
}

var _ Store = (*BlockStore)(nil)

// NewMemoryBlockStore returns a store over a thread-safe in-memory datastore.
func NewMemoryBlockStore(version int) (*BlockStore, error) {
	return NewBlockStore(dssync.MutexWrap(datastore.NewMapDatastore()), version)
}

// NewBlockStore wraps ds. version selects CIDv0 (dag-pb) or CIDv1 (raw).
func NewBlockStore(ds datastore.Batching, version int) (*BlockStore, error) {
	if version != 0 && version != 1 {
		return nil, fmt.Errorf("unsupported CID version %d", version)
	}
	bs := blockstore.NewBlockstore(ds)
	bs.HashOnRead(true)
	return &BlockStore{bs: bs, version: version}, nil
}

// Put stores data and returns its content id.
func (s *BlockStore) Put(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty content", custody.ErrInvalidInput)
	}
	if len(data) > MaxBlockSize {
		return "", fmt.Errorf("%w: content exceeds %d bytes", custody.ErrInvalidInput, MaxBlockSize)
	}

	block, err := s.newBlock(data)
	if err != nil {
		return "", err
	}
	if err := s.bs.Put(ctx, block); err != nil {
		return "", fmt.Errorf("put block: %w", err)
	}
	return block.Cid().String(), nil
}

func (s *BlockStore) newBlock(data []byte) (blocks.Block, error) {
	if s.version == 0 {
		return blocks.NewBlock(data), nil
	}

	prefix := cid.Prefix{
		Version:  1,
		Codec:    cid.Raw,
		MhType:   multihash.SHA2_256,
		MhLength: -1,
	}
	c, err := prefix.Sum(data)
	if err != nil {
		return nil, fmt.Errorf("compute cid: %w", err)
	}
	return blocks.NewBlockWithCid(data, c)
}

// Get returns the bytes stored under id.
func (s *BlockStore) Get(ctx context.Context, id string) ([]byte, error) {
	c, err := ParseCID(id)
	if err != nil {
		return nil, err
	}

	block, err := s.bs.Get(ctx, c)
	if ipld.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", c, err)
	}
	return block.RawData(), nil
}

// Has reports whether id is stored.
func (s *BlockStore) Has(ctx context.Context, id string) (bool, error) {
	c, err := ParseCID(id)
	if err != nil {
		return false, err
	}
	return s.bs.Has(ctx, c)
}

// Size returns the stored length of id.
func (s *BlockStore) Size(ctx context.Context, id string) (int, error) {
	c, err := ParseCID(id)
	if err != nil {
		return 0, err
	}

	n, err := s.bs.GetSize(ctx, c)
	if ipld.IsNotFound(err) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, c)
	}
	return n, err
}

// Keys lists every stored content id.
func (s *BlockStore) Keys(ctx context.Context) ([]string, error) {
	ch, err := s.bs.AllKeysChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	var out []string
	for c := range ch {
		out = append(out, c.String())
	}
	return out, nil
}
