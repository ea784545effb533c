package main

import (
	"testing"

	"fauna/internal/api"
)

func TestDisplayLabel(t *testing.T) {
	t.Parallel()

	if got := displayLabel("red fox"); got != "Red Fox" {
		t.Errorf("displayLabel = %q, want Red Fox", got)
	}
	if got := displayLabel(""); got != "-" {
		t.Errorf("displayLabel empty = %q, want -", got)
	}
}

func TestBuildQueueListRows(t *testing.T) {
	t.Parallel()

	items := []api.PhotoItem{
		{
			ID:     "a",
			Status: "done",
			Result: &api.Result{Label: "raccoon", Confidence: 0.815},
		},
		{
			ID:            "b",
			Status:        "failed",
			FailureReason: &api.FailureReason{Kind: "timeout"},
		},
		{ID: "c", Status: "pending"},
	}

	rows := buildQueueListRows(items)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][2] != "Raccoon" || rows[0][3] != "81.5%" {
		t.Errorf("done row = %v", rows[0])
	}
	if rows[1][4] != "timeout" {
		t.Errorf("failed row = %v", rows[1])
	}
	if rows[2][2] != "-" || rows[2][3] != "-" {
		t.Errorf("pending row = %v", rows[2])
	}
}

func TestBuildQueueStatsRowsOrdersKnownStatusesFirst(t *testing.T) {
	t.Parallel()

	rows := buildQueueStatsRows(map[string]int{"done": 2, "pending": 1})
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want one per status", len(rows))
	}
	if rows[0][0] != "pending" || rows[0][1] != "1" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[2][0] != "done" || rows[2][1] != "2" {
		t.Errorf("done row = %v", rows[2])
	}
}

func TestBuildScoreRowsSortsByScore(t *testing.T) {
	t.Parallel()

	rows := buildScoreRows(map[string]float64{"coyote": 0.05, "red fox": 0.93})
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "Red Fox" {
		t.Errorf("top row = %v, want highest score first", rows[0])
	}
}

func TestBuildItemDetailRows(t *testing.T) {
	t.Parallel()

	item := api.PhotoItem{
		ID:         "a",
		Status:     "done",
		PayloadRef: "a.jpg",
		Result:     &api.Result{Label: "red fox", Confidence: 0.9, ModelVersion: "v2", ProcessingTimeMs: 412},
		Attempts:   1,
	}
	rows := buildItemDetailRows(item)

	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		fields[row[0]] = row[1]
	}
	if fields["Label"] != "Red Fox" {
		t.Errorf("label = %q", fields["Label"])
	}
	if fields["Model"] != "v2" || fields["Took"] != "412ms" {
		t.Errorf("fields = %v", fields)
	}
	if fields["Attempts"] != "1" {
		t.Errorf("attempts = %q", fields["Attempts"])
	}
}
