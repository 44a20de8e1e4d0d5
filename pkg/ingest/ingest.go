// Package ingest models the external input contract from spec.md section
// 6: a length-delimited stream of encrypted reports, decrypted by an
// external function into plaintext input rows. Report decryption itself
// (HPKE) is out of scope per spec.md section 1's Non-goals; this package
// only defines the row shape and the framing around it, following the
// original's QuerySize/length-delimited BodyStream handling
// (_examples/original_source/src/query/runner/oprf_ipa.rs) and its
// config.plaintext_match_keys test-mode bypass.
package ingest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/luxfi/ipa-mpc/pkg/ba"
	"github.com/luxfi/ipa-mpc/pkg/ipaerr"
)

// EventType distinguishes source events (ad impressions) from trigger
// events (conversions), spec.md section 3.
type EventType uint8

const (
	Source EventType = iota
	Trigger
)

// InputRow is the plaintext row layout from spec.md section 3, produced
// by decrypting one EncryptedReport.
type InputRow struct {
	Timestamp    *ba.Array // BA20
	MatchKey     *ba.Array // BA20 (see spec.md section 3's field-width note)
	EventType    EventType
	BreakdownKey *ba.Array // BA8
	TriggerValue *ba.Array // BA3
}

// EncryptedReport is the wire shape of one report, spec.md section 6:
// `ciphertext ∥ associated_data ∥ encapsulated_key`. Decryption is
// treated as an external pure function and is not implemented here.
type EncryptedReport struct {
	Ciphertext      []byte
	AssociatedData  []byte
	EncapsulatedKey []byte
}

// Decryptor is the external decryption function spec.md section 1
// requires the core to treat as a pure function from (report, key) to a
// plaintext row; a spec.md section 7 `Decrypt` error skips the offending
// report rather than failing the whole query.
type Decryptor func(report EncryptedReport, privateKey []byte) (*InputRow, error)

// RowStream reads a length-delimited sequence of EncryptedReports (each
// prefixed by a little-endian uint32 byte length) off r, truncating to at
// most QuerySize reports, matching the original's BodyStream/
// LengthDelimitedStream framing (_examples/original_source/src/query/
// runner/oprf_ipa.rs).
type RowStream struct {
	r         io.Reader
	querySize int
	read      int
}

// NewRowStream wraps r, bounding the stream to querySize reports.
func NewRowStream(r io.Reader, querySize int) *RowStream {
	return &RowStream{r: r, querySize: querySize}
}

// Next reads the next report, or returns io.EOF once querySize reports
// have been read or the underlying reader is exhausted.
func (s *RowStream) Next() (*EncryptedReport, error) {
	if s.read >= s.querySize {
		return nil, io.EOF
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ipaerr.Newf(ipaerr.LengthMismatch, "row stream: truncated length prefix")
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, ipaerr.Newf(ipaerr.LengthMismatch, "row stream: report shorter than its length prefix: %w", err)
	}
	s.read++
	return &EncryptedReport{Ciphertext: buf}, nil
}

// DecodeAll decrypts every report in s with decrypt, skipping (not
// failing on) individual Decrypt errors per spec.md section 7, up to
// maxFailureFraction of the total before giving up with a fatal error.
func DecodeAll(s *RowStream, decrypt Decryptor, privateKey []byte, maxFailureFraction float64) ([]*InputRow, error) {
	var rows []*InputRow
	total, failed := 0, 0
	for {
		report, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		total++
		row, err := decrypt(*report, privateKey)
		if err != nil {
			failed++
			if total > 0 && float64(failed)/float64(total) > maxFailureFraction {
				return nil, ipaerr.Newf(ipaerr.Decrypt, "row stream: failure rate %d/%d exceeds threshold: %w", failed, total, err)
			}
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PlaintextMatchKey builds an InputRow directly from already-decrypted
// fields, bypassing HPKE entirely -- spec.md section 6's
// plaintext_match_keys test-mode config flag.
func PlaintextMatchKey(timestamp, matchKey uint64, eventType EventType, breakdownKey uint64, triggerValue uint64) *InputRow {
	return &InputRow{
		Timestamp:    ba.FromUint64(timestamp, ba.TimestampBits),
		MatchKey:     ba.FromUint64(matchKey, ba.MatchKeyBits),
		EventType:    eventType,
		BreakdownKey: ba.FromUint64(breakdownKey, ba.BreakdownKeyBits),
		TriggerValue: ba.FromUint64(triggerValue, ba.TriggerValueBits),
	}
}

// String renders the event type for diagnostics.
func (e EventType) String() string {
	switch e {
	case Source:
		return "source"
	case Trigger:
		return "trigger"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}
