// Package snapshot persists scenario state as a zstd stream holding a
// one-line JSON header followed by a gob-encoded body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/vovakirdan/beltline/internal/belt"
)

// Version is the snapshot format version written by this package.
const Version = 1

// Ext is the file extension of snapshot files.
const Ext = ".snap.zst"

// ErrVersion is returned when a snapshot has an unsupported version.
var ErrVersion = errors.New("snapshot: unsupported version")

// ErrLayoutID is returned for layout IDs that cannot name a snapshot file.
var ErrLayoutID = errors.New("snapshot: invalid layout id")

// Header is readable without decoding the body.
type Header struct {
	Version  int    `json:"version"`
	LayoutID string `json:"layout_id"`
	Tick     uint64 `json:"tick"`
	Resident int    `json:"resident"`
}

// SnapshotV1 is the full persisted scenario.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64          `json:"seed"`
	IDDraws   uint64         `json:"id_draws,omitempty"`
	PuffDraws uint64         `json:"puff_draws,omitempty"`
	Segments  []SegmentV1    `json:"segments"`
	Ground    []GroundItemV1 `json:"ground,omitempty"`
	Hauls     []string       `json:"hauls,omitempty"`
	Feeders   []FeederV1     `json:"feeders,omitempty"`
	Counters  CountersV1     `json:"counters"`
}

// SegmentV1 is a segment with its items. Counters map item ID to counter.
type SegmentV1 struct {
	Pos            [2]int         `json:"pos"`
	Rot            uint8          `json:"rot"`
	Role           uint8          `json:"role"`
	Speed          int            `json:"speed"`
	Capacity       int            `json:"capacity"`
	OutputToGround bool           `json:"output_to_ground"`
	Powered        bool           `json:"powered"`
	Items          []ItemV1       `json:"items,omitempty"`
	Counters       map[string]int `json:"counters,omitempty"`
}

// ItemV1 is an item stack on a belt or the ground.
type ItemV1 struct {
	ID        string `json:"id"`
	Def       string `json:"def"`
	Count     int    `json:"count"`
	Forbidden bool   `json:"forbidden,omitempty"`
}

// GroundItemV1 is a stack lying at Pos.
type GroundItemV1 struct {
	Pos  [2]int `json:"pos"`
	Item ItemV1 `json:"item"`
}

// FeederV1 is the progress of the layout feeder at Index.
type FeederV1 struct {
	Index   int `json:"index"`
	Emitted int `json:"emitted"`
}

// CountersV1 carries run totals so a resumed run keeps counting.
type CountersV1 struct {
	Spawned       int            `json:"spawned"`
	FeederBlocked int            `json:"feeder_blocked"`
	Transfers     int            `json:"transfers"`
	Teleports     int            `json:"teleports"`
	Delivered     int            `json:"delivered"`
	Orphaned      int            `json:"orphaned"`
	HeldTicks     int            `json:"held_ticks"`
	Stalls        map[string]int `json:"stalls,omitempty"`
}

// Encode writes snap to w.
func Encode(w io.Writer, snap SnapshotV1) (err error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("snapshot: zstd writer: %w", err)
	}
	defer func() {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("snapshot: close: %w", cerr)
		}
	}()

	bw := bufio.NewWriterSize(enc, 64*1024)

	snap.Header.Version = Version
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return fmt.Errorf("snapshot: header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("snapshot: gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r. The header line is checked for the
// version before the body is decoded.
func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("snapshot: zstd reader: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	h, err := readHeader(br)
	if err != nil {
		return snap, err
	}
	if h.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("snapshot: gob decode: %w", err)
	}
	return snap, nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot: read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot: parse header: %w", err)
	}
	return h, nil
}

// Write writes snap to path, creating parent directories.
func Write(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: cannot create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Read reads the snapshot at path.
func Read(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ReadHeader reads only the header of the snapshot at path.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, fmt.Errorf("snapshot: zstd reader: %w", err)
	}
	defer dec.Close()
	return readHeader(bufio.NewReader(dec))
}

// Path returns the file name used for a snapshot of layoutID at tick.
// layoutID must satisfy ValidLayoutID.
func Path(dir, layoutID string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%010d%s", layoutID, tick, Ext))
}

// ValidLayoutID reports whether id is made of letters, digits, '_' and
// '-' only, so it stays inside the snapshot directory and is safe to glob.
func ValidLayoutID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// Latest returns the snapshot of layoutID in dir with the highest tick.
func Latest(dir, layoutID string) (string, error) {
	if !ValidLayoutID(layoutID) {
		return "", fmt.Errorf("%w: %q", ErrLayoutID, layoutID)
	}
	matches, err := filepath.Glob(filepath.Join(dir, layoutID+"-*"+Ext))
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	var candidates []string
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), Ext)
		suffix := strings.TrimPrefix(base, layoutID+"-")
		if len(suffix) == 10 && strings.Trim(suffix, "0123456789") == "" {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("snapshot: no snapshots of %q in %s: %w", layoutID, dir, os.ErrNotExist)
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

// FromWorld converts simulation state into snapshot segments.
func FromWorld(ws belt.WorldState) []SegmentV1 {
	out := make([]SegmentV1, 0, len(ws.Segments))
	for _, st := range ws.Segments {
		seg := SegmentV1{
			Pos:            [2]int{st.Pos.X, st.Pos.Z},
			Rot:            uint8(st.Rot),
			Role:           uint8(st.Role),
			Speed:          st.Speed,
			Capacity:       st.Capacity,
			OutputToGround: st.OutputToGround,
			Powered:        st.Powered,
			Counters:       st.Counters,
		}
		for _, is := range st.Items {
			seg.Items = append(seg.Items, FromItemState(is))
		}
		out = append(out, seg)
	}
	return out
}

// ToWorld converts snapshot segments back into simulation state.
func ToWorld(tick uint64, segs []SegmentV1) belt.WorldState {
	ws := belt.WorldState{Tick: tick, Segments: make([]belt.SegmentState, 0, len(segs))}
	for _, seg := range segs {
		st := belt.SegmentState{
			Pos:            belt.C(seg.Pos[0], seg.Pos[1]),
			Rot:            belt.Rot(seg.Rot),
			Role:           belt.Role(seg.Role),
			Speed:          seg.Speed,
			Capacity:       seg.Capacity,
			OutputToGround: seg.OutputToGround,
			Powered:        seg.Powered,
			Counters:       seg.Counters,
		}
		for _, it := range seg.Items {
			st.Items = append(st.Items, it.ItemState())
		}
		ws.Segments = append(ws.Segments, st)
	}
	return ws
}

// FromItemState converts a persisted belt item.
func FromItemState(is belt.ItemState) ItemV1 {
	return ItemV1{ID: is.ID, Def: is.Def, Count: is.Count, Forbidden: is.Forbidden}
}

// ItemState converts back to the belt form.
func (it ItemV1) ItemState() belt.ItemState {
	return belt.ItemState{ID: it.ID, Def: it.Def, Count: it.Count, Forbidden: it.Forbidden}
}
