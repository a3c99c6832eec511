package ring

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestPushPopFIFO(t *testing.T) {
	p, c := New[int](4)
	for i := 0; i < 4; i++ {
		if err := p.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if got := c.Len(); got != 4 {
		t.Fatalf("Len = %d, want 4", got)
	}
	for i := 0; i < 4; i++ {
		v, ok := c.Pop()
		if !ok || v != i {
			t.Fatalf("pop = %d,%v, want %d,true", v, ok, i)
		}
	}
	if _, ok := c.Pop(); ok {
		t.Fatal("pop on empty queue succeeded")
	}
}

func TestFullRejectsNewest(t *testing.T) {
	p, c := New[string](2)
	_ = p.Push("a")
	_ = p.Push("b")
	if err := p.Push("c"); !errors.Is(err, ErrFull) {
		t.Fatalf("push on full queue = %v, want ErrFull", err)
	}
	if v, _ := c.Pop(); v != "a" {
		t.Fatalf("oldest = %q, want a", v)
	}
	if err := p.Push("d"); err != nil {
		t.Fatalf("push after pop: %v", err)
	}
	for _, want := range []string{"b", "d"} {
		if v, ok := c.Pop(); !ok || v != want {
			t.Fatalf("pop = %q,%v, want %q", v, ok, want)
		}
	}
}

func TestCapacityOneAndNonPowerOfTwo(t *testing.T) {
	for _, capacity := range []int{1, 3, 5, 128} {
		p, c := New[int](capacity)
		if p.Cap() != capacity || c.Cap() != capacity {
			t.Fatalf("Cap = %d/%d, want %d", p.Cap(), c.Cap(), capacity)
		}
		for round := 0; round < 3; round++ {
			for i := 0; i < capacity; i++ {
				if err := p.Push(round*1000 + i); err != nil {
					t.Fatalf("cap %d round %d push %d: %v", capacity, round, i, err)
				}
			}
			if err := p.Push(-1); !errors.Is(err, ErrFull) {
				t.Fatalf("cap %d: expected ErrFull", capacity)
			}
			for i := 0; i < capacity; i++ {
				if v, _ := c.Pop(); v != round*1000+i {
					t.Fatalf("cap %d round %d: pop = %d", capacity, round, v)
				}
			}
		}
	}
}

func TestPopReleasesSlot(t *testing.T) {
	p, c := New[*int](1)
	v := 7
	_ = p.Push(&v)
	c.Pop()
	if c.r.buf[0] != nil {
		t.Fatal("popped slot still references value")
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const n = 20000
	p, c := New[int](8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if p.Push(i) != nil {
				// Let the consumer run on a single CPU.
				runtime.Gosched()
				continue
			}
			i++
		}
	}()
	next := 0
	for next < n {
		v, ok := c.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if v != next {
			t.Fatalf("pop = %d, want %d", v, next)
		}
		next++
	}
	wg.Wait()
}

func TestPushPopDoNotAllocate(t *testing.T) {
	type item struct {
		a, b int
		p    *int
	}
	p, c := New[item](4)
	x := 1
	allocs := testing.AllocsPerRun(100, func() {
		_ = p.Push(item{a: 1, b: 2, p: &x})
		c.Pop()
	})
	if allocs != 0 {
		t.Fatalf("allocs per push/pop = %v, want 0", allocs)
	}
}
