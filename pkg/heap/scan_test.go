// pkg/heap/scan_test.go
package heap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"garner/pkg/page"
)

func collectScan(t *testing.T, sc *Scan) []page.RID {
	t.Helper()
	var rids []page.RID
	for {
		rid, err := sc.Next()
		if errors.Is(err, ErrEndOfFile) {
			return rids
		}
		if err != nil {
			t.Fatalf("scan next: %v", err)
		}
		rids = append(rids, rid)
	}
}

func TestUnfilteredScanVisitsAllInOrder(t *testing.T) {
	fm, bm := newEnv(t)

	var records [][]byte
	for i := int32(0); i < 500; i++ {
		records = append(records, append(intRecord(i), bytes.Repeat([]byte("p"), 30)...))
	}
	want := mustInsert(t, fm, bm, "t", records)

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	got := collectScan(t, sc)
	if len(got) != len(want) {
		t.Fatalf("scan visited %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got (%d,%d), want (%d,%d)",
				i, got[i].PageNo, got[i].SlotNo, want[i].PageNo, want[i].SlotNo)
		}
	}
}

func TestIntPredicateWithMidScanDelete(t *testing.T) {
	fm, bm := newEnv(t)

	var records [][]byte
	for i := int32(0); i < 10; i++ {
		records = append(records, intRecord(i))
	}
	rids := mustInsert(t, fm, bm, "t", records)

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	if err := sc.StartScan(0, 4, TypeInt, intRecord(5), OpGTE); err != nil {
		t.Fatalf("start scan: %v", err)
	}

	var values []int32
	for {
		rid, err := sc.Next()
		if errors.Is(err, ErrEndOfFile) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		rec, err := sc.Record()
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		v := int32(binary.LittleEndian.Uint32(rec))
		values = append(values, v)
		if v == 7 {
			if err := sc.DeleteRecord(); err != nil {
				t.Fatalf("delete: %v", err)
			}
		}
		if rid != rids[v] {
			t.Errorf("value %d at (%d,%d), inserted at (%d,%d)",
				v, rid.PageNo, rid.SlotNo, rids[v].PageNo, rids[v].SlotNo)
		}
	}

	want := []int32{5, 6, 7, 8, 9}
	if len(values) != len(want) {
		t.Fatalf("matched %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("matched %v, want %v", values, want)
		}
	}
	if sc.RecordCount() != 9 {
		t.Errorf("expected 9 records after delete, got %d", sc.RecordCount())
	}

	// The deleted record is gone from a fresh scan.
	sc2, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan 2: %v", err)
	}
	defer sc2.Close()
	if err := sc2.StartScan(0, 4, TypeInt, intRecord(5), OpGTE); err != nil {
		t.Fatalf("start scan 2: %v", err)
	}
	if got := len(collectScan(t, sc2)); got != 4 {
		t.Errorf("expected 4 matches after delete, got %d", got)
	}
	rec, err := sc2.GetRecord(rids[8])
	if err != nil {
		t.Fatalf("get after scan: %v", err)
	}
	if v := int32(binary.LittleEndian.Uint32(rec)); v != 8 {
		t.Errorf("record 8 holds %d", v)
	}
}

func TestMarkReset(t *testing.T) {
	fm, bm := newEnv(t)

	var records [][]byte
	for i := int32(0); i < 5; i++ {
		records = append(records, intRecord(i))
	}
	rids := mustInsert(t, fm, bm, "t", records)

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	for i := 0; i < 2; i++ {
		if _, err := sc.Next(); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	sc.Mark()
	for i := 0; i < 2; i++ {
		if _, err := sc.Next(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if err := sc.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	rid, err := sc.Next()
	if err != nil {
		t.Fatalf("next after reset: %v", err)
	}
	if rid != rids[2] {
		t.Errorf("after reset got (%d,%d), want (%d,%d)",
			rid.PageNo, rid.SlotNo, rids[2].PageNo, rids[2].SlotNo)
	}
}

// TestMarkResetAcrossPages marks on one page and resets after the scan
// has moved to a later page.
func TestMarkResetAcrossPages(t *testing.T) {
	fm, bm := newEnv(t)

	big := bytes.Repeat([]byte("m"), page.Size/2)
	rids := mustInsert(t, fm, bm, "t", [][]byte{big, big, big, big})

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	sc.Next() // first page
	sc.Mark()
	sc.Next()
	sc.Next() // two pages further
	if err := sc.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	rid, err := sc.Next()
	if err != nil {
		t.Fatalf("next after reset: %v", err)
	}
	if rid != rids[1] {
		t.Errorf("after reset got (%d,%d), want (%d,%d)",
			rid.PageNo, rid.SlotNo, rids[1].PageNo, rids[1].SlotNo)
	}
}

func TestStartScanValidation(t *testing.T) {
	fm, bm := newEnv(t)

	mustInsert(t, fm, bm, "t", nil)
	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	four := []byte{1, 2, 3, 4}
	cases := []struct {
		name   string
		offset int
		length int
		typ    Datatype
		filter []byte
		op     Operator
	}{
		{"int wrong length", 0, 3, TypeInt, four, OpEQ},
		{"float wrong length", 0, 8, TypeFloat, four, OpEQ},
		{"negative offset", -1, 4, TypeInt, four, OpEQ},
		{"zero length", 0, 0, TypeString, four, OpEQ},
		{"bad type", 0, 4, Datatype(9), four, OpEQ},
		{"bad operator", 0, 4, TypeInt, four, Operator(17)},
		{"filter too short", 0, 4, TypeString, []byte{1}, OpEQ},
	}
	for _, tc := range cases {
		if err := sc.StartScan(tc.offset, tc.length, tc.typ, tc.filter, tc.op); !errors.Is(err, ErrBadScanParam) {
			t.Errorf("%s: expected ErrBadScanParam, got %v", tc.name, err)
		}
	}

	// A nil filter is an unconditional scan, not an error.
	if err := sc.StartScan(-1, 0, Datatype(9), nil, Operator(17)); err != nil {
		t.Errorf("nil filter: %v", err)
	}
}

// TestPredicateSoundness checks every operator over every type against
// an exhaustive little value matrix.
func TestPredicateSoundness(t *testing.T) {
	fm, bm := newEnv(t)

	values := []int32{-3, 0, 5, 9}
	var records [][]byte
	for _, v := range values {
		rec := make([]byte, 12)
		binary.LittleEndian.PutUint32(rec[0:], uint32(v))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(float32(v)))
		rec[8] = byte('a' + (v+3)/3) // -3->'a', 0->'b', 5->'c', 9->'e'
		records = append(records, rec)
	}
	// One record too short for any 4-byte window at offset 4.
	records = append(records, []byte{1, 2, 3, 4, 5})
	mustInsert(t, fm, bm, "t", records)

	matchCount := func(t *testing.T, offset, length int, typ Datatype, filter []byte, op Operator) int {
		t.Helper()
		sc, err := OpenScan(fm, bm, "t")
		if err != nil {
			t.Fatalf("open scan: %v", err)
		}
		defer sc.Close()
		if err := sc.StartScan(offset, length, typ, filter, op); err != nil {
			t.Fatalf("start scan: %v", err)
		}
		return len(collectScan(t, sc))
	}

	five := intRecord(5)
	intCases := []struct {
		op   Operator
		want int
	}{
		{OpLT, 2},  // -3, 0
		{OpLTE, 3}, // -3, 0, 5
		{OpEQ, 1},  // 5
		{OpGTE, 3}, // 5, 9, and the short record's first word
		{OpGT, 2},  // 9 and the short record
		{OpNE, 4},  // -3, 0, 9 and the short record
	}
	for _, tc := range intCases {
		if got := matchCount(t, 0, 4, TypeInt, five, tc.op); got != tc.want {
			t.Errorf("int op %d: got %d matches, want %d", tc.op, got, tc.want)
		}
	}

	// Float window at offset 4: the short record never matches.
	fFive := make([]byte, 4)
	binary.LittleEndian.PutUint32(fFive, math.Float32bits(5))
	if got := matchCount(t, 4, 4, TypeFloat, fFive, OpNE); got != 3 {
		t.Errorf("float NE: got %d matches, want 3", got)
	}
	if got := matchCount(t, 4, 4, TypeFloat, fFive, OpLT); got != 2 {
		t.Errorf("float LT: got %d matches, want 2", got)
	}

	// String window of one byte at offset 8.
	if got := matchCount(t, 8, 1, TypeString, []byte("b"), OpGT); got != 2 {
		t.Errorf("string GT: got %d matches, want 2", got)
	}
}

func TestScanResumesAfterEnd(t *testing.T) {
	fm, bm := newEnv(t)

	var records [][]byte
	for i := int32(0); i < 4; i++ {
		records = append(records, intRecord(i))
	}
	rids := mustInsert(t, fm, bm, "t", records)

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	sc.Next()
	sc.Next()
	if err := sc.End(); err != nil {
		t.Fatalf("end: %v", err)
	}

	// After End the cursor page is unpinned but the position survives.
	rid, err := sc.Next()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if rid != rids[2] {
		t.Errorf("resumed at (%d,%d), want (%d,%d)",
			rid.PageNo, rid.SlotNo, rids[2].PageNo, rids[2].SlotNo)
	}
}

func TestDeleteWithoutCurrentRecord(t *testing.T) {
	fm, bm := newEnv(t)

	mustInsert(t, fm, bm, "t", [][]byte{[]byte("x")})
	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	defer sc.Close()

	if err := sc.DeleteRecord(); !errors.Is(err, ErrNoCurrentRecord) {
		t.Errorf("expected ErrNoCurrentRecord, got %v", err)
	}
	if _, err := sc.Record(); !errors.Is(err, ErrNoCurrentRecord) {
		t.Errorf("expected ErrNoCurrentRecord, got %v", err)
	}
}

func TestMarkDirtyPersistsMutation(t *testing.T) {
	fm, bm := newEnv(t)

	mustInsert(t, fm, bm, "t", [][]byte{[]byte("mutate me")})

	sc, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("open scan: %v", err)
	}
	if _, err := sc.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	rec, err := sc.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	copy(rec, []byte("MUTATE ME"))
	sc.MarkDirty()
	if err := sc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sc2, err := OpenScan(fm, bm, "t")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer sc2.Close()
	if _, err := sc2.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	rec, err = sc2.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !bytes.Equal(rec, []byte("MUTATE ME")) {
		t.Errorf("mutation lost: %q", rec)
	}
}
