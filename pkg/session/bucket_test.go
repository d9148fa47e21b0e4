package session

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func TestBoundedID_Stable(t *testing.T) {
	first := BoundedID("conversation-42", 10)
	for i := 0; i < 100; i++ {
		if got := BoundedID("conversation-42", 10); got != first {
			t.Fatalf("BoundedID() = %q on call %d, want stable %q", got, i, first)
		}
	}
}

func TestBoundedID_Format(t *testing.T) {
	got := BoundedID("conversation-42", 10)

	prefix, suffix, found := strings.Cut(got, "_b")
	if !found {
		t.Fatalf("BoundedID() = %q, want id_b<bucket> format", got)
	}
	if prefix != "conversation-42" {
		t.Errorf("prefix = %q, want the original id", prefix)
	}
	bucket, err := strconv.Atoi(suffix)
	if err != nil {
		t.Fatalf("bucket suffix %q not numeric: %v", suffix, err)
	}
	if bucket < 0 || bucket >= 10 {
		t.Errorf("bucket = %d, want in [0, 10)", bucket)
	}
}

func TestBoundedID_EmptyIDUniquePerCall(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := BoundedID("", 5)
		if id == "" {
			t.Fatal("BoundedID(\"\") returned empty string")
		}
		if strings.Contains(id, "_b") {
			t.Errorf("BoundedID(\"\") = %q, anonymous sessions must not share buckets", id)
		}
		if seen[id] {
			t.Fatalf("BoundedID(\"\") repeated %q", id)
		}
		seen[id] = true
	}
}

func TestBoundedID_Distribution(t *testing.T) {
	const buckets = 3
	const ids = 1000

	counts := make(map[int]int)
	for i := 0; i < ids; i++ {
		got := BoundedID(fmt.Sprintf("conversation-%d", i), buckets)
		_, suffix, _ := strings.Cut(got, "_b")
		bucket, err := strconv.Atoi(suffix)
		if err != nil {
			t.Fatalf("bucket suffix %q not numeric: %v", suffix, err)
		}
		counts[bucket]++
	}

	for bucket := 0; bucket < buckets; bucket++ {
		count := counts[bucket]
		if count == 0 {
			t.Errorf("bucket %d never used across %d ids", bucket, ids)
		}
		// An even hash keeps each bucket near ids/buckets.
		if count > ids*45/100 {
			t.Errorf("bucket %d holds %d of %d ids, distribution too skewed", bucket, count, ids)
		}
	}
}

func TestBoundedID_NonPositiveBuckets(t *testing.T) {
	for _, buckets := range []int{0, -1} {
		got := BoundedID("conversation-42", buckets)
		if got != "conversation-42_b0" {
			t.Errorf("BoundedID(id, %d) = %q, want single-bucket conversation-42_b0", buckets, got)
		}
	}
}

func TestBoundedID_SingleBucket(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("conversation-%d", i)
		if got, want := BoundedID(id, 1), id+"_b0"; got != want {
			t.Errorf("BoundedID(%q, 1) = %q, want %q", id, got, want)
		}
	}
}
