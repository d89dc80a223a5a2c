package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one committed event waiting for delivery.
type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64 // unix nanos
	Payload     []byte
}

const headerLen = 1 + 4 + 8

var errShortRecord = errors.New("invalid outbox record length")

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

// decodeRecord copies b; pebble values are only valid until the closer runs.
func decodeRecord(b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errShortRecord
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[headerLen:]...),
	}, nil
}

// -------------------- Outbox --------------------

// Outbox is a durable queue of committed events keyed by commit sequence.
// Delivery is at-least-once: SENT records that were never acked are
// scanned again after a restart.
//
// The watermark is the highest seq such that every seq up to it was
// enqueued. It survives PruneAcked, so callers refill gaps from the journal.
type Outbox struct {
	db *pebble.DB

	mu        sync.Mutex
	watermark uint64
}

// Open opens the outbox in dir.
func Open(dir string) (*Outbox, error) {
	return OpenWithOptions(dir, &pebble.Options{})
}

// OpenWithOptions opens the outbox with custom pebble options (tests use an in-memory FS).
func OpenWithOptions(dir string, opts *pebble.Options) (*Outbox, error) {
	// durability is the point; never disable the pebble WAL
	opts.DisableWAL = false
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox %s: %w", dir, err)
	}
	o := &Outbox{db: db}
	if o.watermark, err = o.loadWatermark(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open outbox %s: %w", dir, err)
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// PutNew inserts a committed event, replacing any record for seq.
// The watermark only advances when seq directly follows it.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	batch := o.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(keyFor(seq), encodeRecord(Record{State: StateNew, Payload: payload}), nil); err != nil {
		return err
	}
	advance := seq == o.watermark+1
	if advance {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seq)
		if err := batch.Set([]byte(watermarkKey), buf[:], nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	if advance {
		o.watermark = seq
	}
	return nil
}

// Watermark returns the highest seq with no gaps below it.
func (o *Outbox) Watermark() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.watermark
}

func (o *Outbox) loadWatermark() (uint64, error) {
	val, closer, err := o.db.Get([]byte(watermarkKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, fmt.Errorf("invalid watermark length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// UpdateState updates state after send / ack / failure, keeping the payload.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// -------------------- Scan --------------------

// Scan iterates records in seq order until fn returns an error or limit
// records were visited (limit <= 0 means no limit).
func (o *Outbox) Scan(limit int, fn func(seq uint64, rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && n >= limit {
			break
		}
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		n++
		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// ScanPending visits up to limit NEW and SENT records in seq order.
// This is used by the broadcaster.
func (o *Outbox) ScanPending(limit int, fn func(seq uint64, rec Record) error) error {
	visited := 0
	err := o.Scan(0, func(seq uint64, rec Record) error {
		if rec.State != StateNew && rec.State != StateSent {
			return nil
		}
		if limit > 0 && visited >= limit {
			return errStopScan
		}
		visited++
		return fn(seq, rec)
	})
	if errors.Is(err, errStopScan) {
		return nil
	}
	return err
}

var errStopScan = errors.New("stop scan")

// PruneAcked deletes every ACKED record and reports how many were removed.
func (o *Outbox) PruneAcked() (int, error) {
	var acked []uint64
	err := o.Scan(0, func(seq uint64, rec Record) error {
		if rec.State == StateAcked {
			acked = append(acked, seq)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	batch := o.db.NewBatch()
	defer batch.Close()
	for _, seq := range acked {
		if err := batch.Delete(keyFor(seq), nil); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return len(acked), nil
}

// -------------------- Helpers --------------------

const (
	keyPrefix    = "event/"
	watermarkKey = "meta/watermark"
)

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(string(b), keyPrefix), 10, 64)
}
