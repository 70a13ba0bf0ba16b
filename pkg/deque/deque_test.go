package deque

import "testing"

func TestPushPopBothEnds(t *testing.T) {
	d := New[string]()

	d.PushFront("b")
	d.PushFront("a")
	d.PushBack("c")

	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}

	v, ok := d.PopFront()
	if !ok || v != "a" {
		t.Errorf("PopFront = %q, %v, want a, true", v, ok)
	}
	v, ok = d.PopBack()
	if !ok || v != "c" {
		t.Errorf("PopBack = %q, %v, want c, true", v, ok)
	}
	v, ok = d.PopFront()
	if !ok || v != "b" {
		t.Errorf("PopFront = %q, %v, want b, true", v, ok)
	}

	if _, ok := d.PopFront(); ok {
		t.Error("PopFront on empty deque returned ok")
	}
	if _, ok := d.PopBack(); ok {
		t.Error("PopBack on empty deque returned ok")
	}
}

func TestWrapAround(t *testing.T) {
	d := New[int]()

	// Force the head to rotate through the buffer several times.
	for i := 0; i < 100; i++ {
		d.PushBack(i)
		if i%3 == 0 {
			if _, ok := d.PopFront(); !ok {
				t.Fatal("unexpected empty deque")
			}
		}
	}

	got := d.Slice()
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1]+1 {
			t.Fatalf("order broken at %d: %v", i, got)
		}
	}
}

func TestAtAndSet(t *testing.T) {
	d := New[string]()
	d.PushBack("x")
	d.PushBack("y")
	d.PushBack("z")

	if got := d.At(1); got != "y" {
		t.Errorf("At(1) = %q, want y", got)
	}

	d.Set(1, "w")
	if got := d.At(1); got != "w" {
		t.Errorf("At(1) after Set = %q, want w", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("At out of range did not panic")
		}
	}()
	d.At(3)
}

func TestRemove(t *testing.T) {
	d := New[int]()
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}

	d.Remove(2)
	want := []int{0, 1, 3, 4}
	got := d.Slice()
	if len(got) != len(want) {
		t.Fatalf("Slice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice = %v, want %v", got, want)
		}
	}

	d.Remove(0)
	d.Remove(d.Len() - 1)
	got = d.Slice()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("Slice after edge removals = %v, want [1 3]", got)
	}
}

func TestShrinkPreservesOrder(t *testing.T) {
	d := New[int]()
	for i := 0; i < 1024; i++ {
		d.PushBack(i)
	}
	for i := 0; i < 1000; i++ {
		v, ok := d.PopFront()
		if !ok || v != i {
			t.Fatalf("PopFront = %d, %v, want %d, true", v, ok, i)
		}
	}
	if d.Len() != 24 {
		t.Fatalf("Len = %d, want 24", d.Len())
	}
	if d.At(0) != 1000 {
		t.Fatalf("At(0) = %d, want 1000", d.At(0))
	}
}
