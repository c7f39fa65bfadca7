package engine

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is one immutable result of a fit pass: the interaction matrix,
// both similarity matrices, the content feature matrix, the popularity
// vector and the index orderings that align them. A snapshot is read-only
// after Fit returns; concurrent scoring calls need no locking.
type Snapshot struct {
	ID       uuid.UUID
	FittedAt time.Time

	interactions *mat.Dense // users × items, summed action weights
	itemSim      *mat.Dense // items × items cosine similarity
	userSim      *mat.Dense // users × users cosine similarity
	features     *mat.Dense // items × d content features
	popularity   []float64  // total interaction weight per item

	// Index orderings. Losing these invalidates the snapshot: every matrix
	// row/column and score vector position is defined relative to them.
	userIDs   []int64
	userIndex map[int64]int
	itemIDs   []int64
	itemIndex map[int64]int

	// history holds summed weights per item for every interacting user,
	// including users below the min_interactions threshold that never made
	// it into the interaction matrix. It backs the already-interacted mask
	// and the content profile of partially-cold users.
	history map[int64]map[int64]float64

	// knownUsers mirrors the user table; ids outside it are unknown users,
	// not cold-start users.
	knownUsers map[int64]struct{}

	topKSimilarUsers int
}

// NumUsers returns the number of matrix rows (qualifying users only).
func (s *Snapshot) NumUsers() int { return len(s.userIDs) }

// NumItems returns the number of catalog items in the index space.
func (s *Snapshot) NumItems() int { return len(s.itemIDs) }

// ItemIDs returns the column ordering of the item index space.
func (s *Snapshot) ItemIDs() []int64 { return s.itemIDs }

func (s *Snapshot) userRow(userID int64) (int, bool) {
	row, ok := s.userIndex[userID]
	return row, ok
}

type matrixDump struct {
	Rows, Cols int
	Data       []float64
}

func dumpMatrix(m *mat.Dense) matrixDump {
	if m == nil {
		return matrixDump{}
	}
	r, c := m.Dims()
	raw := m.RawMatrix()
	data := make([]float64, len(raw.Data))
	copy(data, raw.Data)
	return matrixDump{Rows: r, Cols: c, Data: data}
}

func (d matrixDump) matrix() *mat.Dense {
	if d.Rows == 0 || d.Cols == 0 {
		return nil
	}
	return mat.NewDense(d.Rows, d.Cols, d.Data)
}

// snapshotDump is the gob wire form of a Snapshot.
type snapshotDump struct {
	ID               uuid.UUID
	FittedAt         time.Time
	Interactions     matrixDump
	ItemSim          matrixDump
	UserSim          matrixDump
	Features         matrixDump
	Popularity       []float64
	UserIDs          []int64
	ItemIDs          []int64
	History          map[int64]map[int64]float64
	KnownUsers       []int64
	TopKSimilarUsers int
}

// Save serializes the snapshot, index orderings included, so that a later
// Load reconstructs every lookup exactly.
func (s *Snapshot) Save(w io.Writer) error {
	known := make([]int64, 0, len(s.knownUsers))
	for id := range s.knownUsers {
		known = append(known, id)
	}
	dump := snapshotDump{
		ID:               s.ID,
		FittedAt:         s.FittedAt,
		Interactions:     dumpMatrix(s.interactions),
		ItemSim:          dumpMatrix(s.itemSim),
		UserSim:          dumpMatrix(s.userSim),
		Features:         dumpMatrix(s.features),
		Popularity:       s.popularity,
		UserIDs:          s.userIDs,
		ItemIDs:          s.itemIDs,
		History:          s.history,
		KnownUsers:       known,
		TopKSimilarUsers: s.topKSimilarUsers,
	}
	if err := gob.NewEncoder(w).Encode(dump); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot previously written by Save.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var dump snapshotDump
	if err := gob.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s := &Snapshot{
		ID:               dump.ID,
		FittedAt:         dump.FittedAt,
		interactions:     dump.Interactions.matrix(),
		itemSim:          dump.ItemSim.matrix(),
		userSim:          dump.UserSim.matrix(),
		features:         dump.Features.matrix(),
		popularity:       dump.Popularity,
		userIDs:          dump.UserIDs,
		itemIDs:          dump.ItemIDs,
		history:          dump.History,
		knownUsers:       make(map[int64]struct{}, len(dump.KnownUsers)),
		topKSimilarUsers: dump.TopKSimilarUsers,
	}
	s.userIndex = make(map[int64]int, len(s.userIDs))
	for i, id := range s.userIDs {
		s.userIndex[id] = i
	}
	s.itemIndex = make(map[int64]int, len(s.itemIDs))
	for i, id := range s.itemIDs {
		s.itemIndex[id] = i
	}
	for _, id := range dump.KnownUsers {
		s.knownUsers[id] = struct{}{}
	}
	return s, nil
}
