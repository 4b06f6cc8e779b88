package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type Blockchain struct {
	mu     sync.RWMutex
	now    func() time.Time
	blocks []Block
}

// NewBlockchain creates a blockchain holding only the genesis block, whose
// previous hash is "0". now stamps the blocks; nil means time.Now.
func NewBlockchain(now func() time.Time) *Blockchain {
	if now == nil {
		now = time.Now
	}
	bc := &Blockchain{now: now}
	genesis := Block{
		Index:     0,
		Timestamp: now().UnixNano(),
		PrevHash:  "0",
		Kind:      KindGenesis,
		Player:    Referee,
	}
	genesis.Hash = calculateHash(genesis)
	bc.blocks = append(bc.blocks, genesis)
	return bc
}

// Append records data as a new block. data is JSON marshaled.
func (bc *Blockchain) Append(kind Kind, player int, data any) (Block, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Block{}, fmt.Errorf("encoding %s block: %w", kind, err)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	latest := bc.blocks[len(bc.blocks)-1]
	b := Block{
		Index:     latest.Index + 1,
		Timestamp: bc.now().UnixNano(),
		PrevHash:  latest.Hash,
		Kind:      kind,
		Player:    player,
		Data:      raw,
	}
	b.Hash = calculateHash(b)
	if err := validateBlock(b, latest); err != nil {
		return Block{}, fmt.Errorf("invalid block: %w", err)
	}
	bc.blocks = append(bc.blocks, b)
	return b, nil
}

// GetLatest returns the most recently added block.
func (bc *Blockchain) GetLatest() Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[len(bc.blocks)-1]
}

// GetByIndex retrieves a block by its index in the chain.
func (bc *Blockchain) GetByIndex(index int) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		return Block{}, fmt.Errorf("index %d out of range", index)
	}
	return bc.blocks[index], nil
}

// Blocks returns a copy of the chain, genesis first.
func (bc *Blockchain) Blocks() []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return append([]Block(nil), bc.blocks...)
}

// Len is the number of blocks including genesis.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Verify validates the genesis block and the hash, index continuity and
// previous hash link of every later block.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return fmt.Errorf("empty blockchain")
	}
	if bc.blocks[0].PrevHash != "0" || bc.blocks[0].Hash != calculateHash(bc.blocks[0]) {
		return fmt.Errorf("invalid genesis block")
	}
	for i := 1; i < len(bc.blocks); i++ {
		if err := validateBlock(bc.blocks[i], bc.blocks[i-1]); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

func validateBlock(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	if expected := calculateHash(current); current.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, current.Hash)
	}
	return nil
}

// calculateHash is the SHA256 of the index, timestamp, previous hash, kind,
// player and data of a block.
func calculateHash(b Block) string {
	data := fmt.Sprintf("%d%d%s%s%d%s",
		b.Index,
		b.Timestamp,
		b.PrevHash,
		b.Kind,
		b.Player,
		string(b.Data),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
