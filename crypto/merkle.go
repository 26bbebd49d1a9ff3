package crypto

import "crypto/sha256"

// MerkleRoot computes a binary SHA-256 Merkle root over leaves. Odd levels
// are padded by duplicating the last node. An empty leaf set commits to
// SHA-256 of the empty string; a single leaf is its own root.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return sha256.Sum256(nil)
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	current := make([][32]byte, len(leaves))
	copy(current, leaves)
	if len(current)%2 != 0 {
		current = append(current, current[len(current)-1])
	}

	for len(current) > 1 {
		next := make([][32]byte, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			h := sha256.New()
			h.Write(current[i][:])
			h.Write(current[i+1][:])
			copy(next[i/2][:], h.Sum(nil))
		}
		current = next
		if len(current) > 1 && len(current)%2 != 0 {
			current = append(current, current[len(current)-1])
		}
	}
	return current[0]
}

// MerkleAccumulator computes the same root as MerkleRoot over leaves added
// one at a time, holding one node per tree level instead of every leaf.
type MerkleAccumulator struct {
	// pending[i] is the last complete node of level i while that level
	// holds an odd number of complete nodes.
	pending []*[32]byte
	count   uint64
}

// Add appends a leaf.
func (m *MerkleAccumulator) Add(leaf [32]byte) {
	node := leaf
	for level := 0; ; level++ {
		if level == len(m.pending) {
			m.pending = append(m.pending, nil)
		}
		if m.pending[level] == nil {
			m.pending[level] = &node
			break
		}
		node = hashPair(*m.pending[level], node)
		m.pending[level] = nil
	}
	m.count++
}

// Len is the number of leaves added.
func (m *MerkleAccumulator) Len() uint64 { return m.count }

// Root returns the Merkle root of the leaves added so far. Odd levels are
// padded by duplicating their last node, as in MerkleRoot.
func (m *MerkleAccumulator) Root() [32]byte {
	if m.count == 0 {
		return sha256.Sum256(nil)
	}
	var carry *[32]byte
	for level := 0; ; level++ {
		var p *[32]byte
		if level < len(m.pending) {
			p = m.pending[level]
		}
		size := m.count >> uint(level)
		if carry != nil {
			size++
		}
		if size == 1 {
			if carry != nil {
				return *carry
			}
			return *p
		}
		var next [32]byte
		switch {
		case p != nil && carry != nil:
			next = hashPair(*p, *carry)
		case p != nil:
			next = hashPair(*p, *p)
		case carry != nil:
			next = hashPair(*carry, *carry)
		default:
			continue
		}
		carry = &next
	}
}

func hashPair(a, b [32]byte) [32]byte {
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
