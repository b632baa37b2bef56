package stream

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
	"github.com/jacentio/arbor/store/memory"
)

func nodeImage(treeID int64, e matrix.Encoding, ttl int64) map[string]events.DynamoDBAttributeValue {
	image := map[string]events.DynamoDBAttributeValue{
		"tree_id": events.NewNumberAttribute(strconv.FormatInt(treeID, 10)),
		"a11":     events.NewNumberAttribute(strconv.FormatInt(e.A11, 10)),
		"a12":     events.NewNumberAttribute(strconv.FormatInt(e.A12, 10)),
		"a21":     events.NewNumberAttribute(strconv.FormatInt(e.A21, 10)),
		"a22":     events.NewNumberAttribute(strconv.FormatInt(e.A22, 10)),
	}
	if ttl != 0 {
		image["ttl"] = events.NewNumberAttribute(strconv.FormatInt(ttl, 10))
	}
	return image
}

func ttlSetRecord(treeID int64, e matrix.Encoding, ttl int64) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: nodeImage(treeID, e, 0),
			NewImage: nodeImage(treeID, e, ttl),
		},
	}
}

// seedTree inserts A -> B -> D and A -> C into a fresh memory store and
// returns the encodings keyed by name.
func seedTree(t *testing.T, s store.Store) map[string]matrix.Encoding {
	t.Helper()
	ctx := context.Background()

	a, err := matrix.Root(0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := matrix.Child(a, 0)
	if err != nil {
		t.Fatal(err)
	}
	c, err := matrix.Child(a, 1)
	if err != nil {
		t.Fatal(err)
	}
	d, err := matrix.Child(b, 0)
	if err != nil {
		t.Fatal(err)
	}

	encs := map[string]matrix.Encoding{"A": a, "B": b, "C": c, "D": d}
	for _, name := range []string{"A", "B", "C", "D"} {
		e := encs[name]
		err := s.Insert(ctx, &store.Row{
			ID:     name,
			TreeID: 1,
			Enc:    e,
			Attrs:  map[string]string{"name": name},
		})
		if err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	return encs
}

func remaining(t *testing.T, s store.Store) map[string]bool {
	t.Helper()
	rows, err := s.Select(context.Background(), store.Query{TreeID: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]bool)
	for _, row := range rows {
		out[row.ID] = true
	}
	return out
}

func TestHandleCascadeDelete(t *testing.T) {
	s := memory.New()
	encs := seedTree(t, s)
	h := NewHandler(s, nil)

	// B was soft-deleted; the cascade must remove D and leave C alone.
	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			ttlSetRecord(1, encs["B"], 1704067200),
		},
	}
	if err := h.HandleCascadeDelete(context.Background(), event); err != nil {
		t.Fatalf("HandleCascadeDelete: %v", err)
	}

	left := remaining(t, s)
	if left["D"] {
		t.Error("descendant D should have been deleted")
	}
	if !left["A"] || !left["C"] {
		t.Errorf("unrelated nodes should survive, got %v", left)
	}
}

func TestHandleCascadeDeleteRoot(t *testing.T) {
	s := memory.New()
	encs := seedTree(t, s)
	h := NewHandler(s, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			ttlSetRecord(1, encs["A"], 1704067200),
		},
	}
	if err := h.HandleCascadeDelete(context.Background(), event); err != nil {
		t.Fatalf("HandleCascadeDelete: %v", err)
	}

	left := remaining(t, s)
	for _, name := range []string{"B", "C", "D"} {
		if left[name] {
			t.Errorf("descendant %s should have been deleted", name)
		}
	}
}

func TestProcessRecordSkipsNonModifyEvents(t *testing.T) {
	for _, eventName := range []string{"INSERT", "REMOVE", "UNKNOWN"} {
		t.Run(eventName, func(t *testing.T) {
			h := NewHandler(nil, nil)
			record := events.DynamoDBEventRecord{EventName: eventName}

			if err := h.processRecord(context.Background(), record); err != nil {
				t.Errorf("expected no error for %s event, got %v", eventName, err)
			}
		})
	}
}

func TestProcessRecordSkipsExistingTTL(t *testing.T) {
	h := NewHandler(nil, nil)
	enc, _ := matrix.Root(0)

	// TTL changed but was already present: cascade already ran.
	record := events.DynamoDBEventRecord{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: nodeImage(1, enc, 1000),
			NewImage: nodeImage(1, enc, 2000),
		},
	}
	if err := h.processRecord(context.Background(), record); err != nil {
		t.Errorf("expected no error when TTL already existed, got %v", err)
	}
}

func TestProcessRecordSkipsZeroTTL(t *testing.T) {
	h := NewHandler(nil, nil)
	enc, _ := matrix.Root(0)

	record := events.DynamoDBEventRecord{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: nodeImage(1, enc, 0),
			NewImage: nodeImage(1, enc, 0),
		},
	}
	if err := h.processRecord(context.Background(), record); err != nil {
		t.Errorf("expected no error for zero TTL, got %v", err)
	}
}

func TestProcessRecordSkipsNonNodeItems(t *testing.T) {
	h := NewHandler(nil, nil)

	// The tree id counter item gains attributes through the same stream
	// but carries no matrix columns.
	record := events.DynamoDBEventRecord{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{
				"last": events.NewNumberAttribute("3"),
			},
			NewImage: map[string]events.DynamoDBAttributeValue{
				"last": events.NewNumberAttribute("4"),
				"ttl":  events.NewNumberAttribute("1704067200"),
			},
		},
	}
	if err := h.processRecord(context.Background(), record); err != nil {
		t.Errorf("expected non-node record to be skipped, got %v", err)
	}
}

func TestGetNumberAttr(t *testing.T) {
	tests := []struct {
		name  string
		image map[string]events.DynamoDBAttributeValue
		key   string
		want  int64
	}{
		{
			"valid number",
			map[string]events.DynamoDBAttributeValue{"ttl": events.NewNumberAttribute("1234567890")},
			"ttl", 1234567890,
		},
		{
			"missing key",
			map[string]events.DynamoDBAttributeValue{"other": events.NewNumberAttribute("42")},
			"ttl", 0,
		},
		{
			"nil image",
			nil,
			"ttl", 0,
		},
		{
			"wrong type",
			map[string]events.DynamoDBAttributeValue{"ttl": events.NewStringAttribute("not-a-number")},
			"ttl", 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getNumberAttr(tt.image, tt.key); got != tt.want {
				t.Errorf("getNumberAttr() = %d, want %d", got, tt.want)
			}
		})
	}
}
