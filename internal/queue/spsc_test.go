package queue

import (
	"testing"
)

func TestNewSPSC_CapacityValidation(t *testing.T) {
	for _, c := range []int{0, -1, 3, 100, 65535} {
		if _, err := NewSPSC[int](c); err == nil {
			t.Errorf("NewSPSC(%d) succeeded, want error", c)
		}
	}
	for _, c := range []int{1, 2, 64, 65536} {
		if _, err := NewSPSC[int](c); err != nil {
			t.Errorf("NewSPSC(%d) error = %v", c, err)
		}
	}
}

func TestSPSC_FIFO(t *testing.T) {
	q, err := NewSPSC[int](16)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if !q.TryPush(i) {
			t.Fatalf("TryPush(%d) = false", i)
		}
	}
	for i := 0; i < 10; i++ {
		v, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() empty at %d", i)
		}
		if v != i {
			t.Fatalf("TryPop() = %d, want %d", v, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on drained queue returned a value")
	}
}

func TestSPSC_FullAtCapacityMinusOne(t *testing.T) {
	q, _ := NewSPSC[int](8)

	if q.Capacity() != 7 {
		t.Fatalf("Capacity() = %d, want 7", q.Capacity())
	}

	for i := 0; i < 7; i++ {
		if !q.TryPush(i) {
			t.Fatalf("TryPush(%d) = false before capacity", i)
		}
	}
	if q.TryPush(7) {
		t.Error("TryPush on full queue succeeded")
	}
	if q.Size() != 7 {
		t.Errorf("Size() = %d, want 7", q.Size())
	}

	if _, ok := q.TryPop(); !ok {
		t.Fatal("TryPop() on full queue failed")
	}
	if !q.TryPush(7) {
		t.Error("TryPush after pop failed")
	}
}

func TestSPSC_Stress(t *testing.T) {
	const n = 1_000_000

	q, _ := NewSPSC[int](1024)
	done := make(chan struct{})

	var sum int64
	var count int64
	go func() {
		defer close(done)
		prev := -1
		for count < n {
			v, ok := q.TryPop()
			if !ok {
				continue
			}
			if v <= prev {
				t.Errorf("out of order: %d after %d", v, prev)
				return
			}
			prev = v
			sum += int64(v)
			count++
		}
	}()

	for i := 0; i < n; {
		if q.TryPush(i) {
			i++
		}
	}
	<-done

	const wantSum = int64(n) * (n - 1) / 2
	if count != n {
		t.Errorf("popped %d values, want %d", count, n)
	}
	if sum != wantSum {
		t.Errorf("sum = %d, want %d", sum, wantSum)
	}
}

func TestSPSC_ZeroesPoppedSlots(t *testing.T) {
	q, _ := NewSPSC[*int](4)
	v := 42
	q.TryPush(&v)
	if p, ok := q.TryPop(); !ok || *p != 42 {
		t.Fatal("pop failed")
	}
	// The slot must not retain the pointer.
	if q.buf[0] != nil {
		t.Error("popped slot still holds a reference")
	}
}
