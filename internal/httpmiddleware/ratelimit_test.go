package httpmiddleware

import "testing"

func TestTokenBucketExhausts(t *testing.T) {
	l := NewSimpleTokenBucket(3, 60)

	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("bucket should be empty")
	}

	// Other clients have their own bucket.
	if !l.allow("5.6.7.8") {
		t.Error("different key should not share a bucket")
	}
}
