package recovery

import (
	"fmt"
	"sync"
	"testing"
)

func journalEntry(op string, code Code) (ErrorContext, ClassifiedError) {
	return ErrorContext{Operation: op, Stage: StageGeneration},
		ClassifiedError{Code: code, Severity: SeverityFatal, Message: "failed"}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := NewJournal(8)

	ectx, ce := journalEntry("first", CodeUnknown)
	j.Record(ectx, ce, ActionEscalate)
	ectx, ce = journalEntry("second", CodeNetworkTimeout)
	j.Record(ectx, ce, ActionFailSafe)

	if j.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", j.Len())
	}

	recent := j.Recent(2)
	if recent[0].Operation != "second" || recent[1].Operation != "first" {
		t.Fatalf("Recent must return newest first: %v, %v", recent[0].Operation, recent[1].Operation)
	}
}

func TestJournal_EvictsOldestWhenFull(t *testing.T) {
	j := NewJournal(3)

	for i := range 5 {
		ectx, ce := journalEntry(fmt.Sprintf("op-%d", i), CodeUnknown)
		j.Record(ectx, ce, ActionEscalate)
	}

	if j.Len() != 3 {
		t.Fatalf("ring must hold at most 3 entries, got %d", j.Len())
	}
	recent := j.Recent(3)
	if recent[0].Operation != "op-4" || recent[2].Operation != "op-2" {
		t.Fatalf("oldest entries must be evicted first: %+v", recent)
	}
}

func TestJournal_RecentCappedAtLength(t *testing.T) {
	j := NewJournal(8)
	ectx, ce := journalEntry("only", CodeUnknown)
	j.Record(ectx, ce, ActionEscalate)

	if got := j.Recent(10); len(got) != 1 {
		t.Fatalf("Recent must cap at the stored count, got %d", len(got))
	}
}

func TestJournal_ZeroSizeDisablesRecording(t *testing.T) {
	j := NewJournal(0)
	ectx, ce := journalEntry("dropped", CodeUnknown)

	entry := j.Record(ectx, ce, ActionEscalate)
	if entry.ID.IsNil() {
		t.Fatal("Record must still return a populated entry")
	}
	if j.Len() != 0 {
		t.Fatalf("disabled journal must store nothing, got %d", j.Len())
	}
}

func TestJournal_ConcurrentRecords(t *testing.T) {
	j := NewJournal(100)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for k := range 10 {
				ectx, ce := journalEntry(fmt.Sprintf("op-%d-%d", n, k), CodeUnknown)
				j.Record(ectx, ce, ActionEscalate)
			}
		}(i)
	}
	wg.Wait()

	if j.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", j.Len())
	}
}
