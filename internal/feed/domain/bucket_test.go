package feed

import "testing"

func TestBuildBucketsAveragesAlignedWindows(t *testing.T) {
	entries := []LogEntry{
		{Epoch: 100, Timestamp: "a", Ambient: 400, Filtered: 300, ImprovementPercent: 25},
		{Epoch: 101, Timestamp: "b", Ambient: 500, Filtered: 300, ImprovementPercent: 40},
		{Epoch: 105, Timestamp: "c", Ambient: 600, Filtered: 600, ImprovementPercent: 0},
		{Epoch: 0, Timestamp: "skip", Ambient: 1},
		{Epoch: 121, Timestamp: "d", Ambient: 700, Filtered: 350, ImprovementPercent: 50},
	}
	fine, coarse := BuildBuckets(entries, DefaultFineLimit, DefaultCoarseLimit)

	if len(fine) != 3 {
		t.Fatalf("expected 3 fine buckets, got %d", len(fine))
	}
	first := fine[0].Frame()
	if fine[0].Key != 100 || fine[0].Count != 2 || first.Ambient != 450 || first.Improvement != 32.5 {
		t.Fatalf("unexpected first fine bucket %+v", first)
	}
	if first.Timestamp != "b" || first.Epoch != 101 {
		t.Fatalf("expected bucket labelled by latest entry, got %+v", first)
	}

	if len(coarse) != 2 || coarse[0].Key != 60 || coarse[0].Count != 3 || coarse[1].Key != 120 {
		t.Fatalf("unexpected coarse buckets %+v", coarse)
	}
}

func TestBuildBucketsSplitsOutOfOrderEntries(t *testing.T) {
	entries := []LogEntry{
		{Epoch: 100, Ambient: 400},
		{Epoch: 110, Ambient: 400},
		{Epoch: 102, Ambient: 400},
	}
	fine, _ := BuildBuckets(entries, DefaultFineLimit, DefaultCoarseLimit)
	if len(fine) != 3 {
		t.Fatalf("expected 3 fine buckets, got %d", len(fine))
	}
}

func TestBuildBucketsKeepsNewest(t *testing.T) {
	entries := make([]LogEntry, 0, 50)
	for i := 1; i <= 50; i++ {
		entries = append(entries, LogEntry{Epoch: int64(i * 5), Ambient: float64(i)})
	}
	fine, coarse := BuildBuckets(entries, 10, 2)
	if len(fine) != 10 || fine[9].Key != 250 {
		t.Fatalf("expected the newest 10 fine buckets, got %d", len(fine))
	}
	if len(coarse) != 2 || coarse[1].Key != 240 {
		t.Fatalf("expected the newest 2 coarse buckets, got %+v", coarse)
	}
	if frames := Frames(fine); len(frames) != 10 || frames[0].Ambient != 41 {
		t.Fatalf("unexpected frames %+v", frames)
	}
}
