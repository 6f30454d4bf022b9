package utils

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	mutex := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mutex.Lock("g1")
			counter++
			mutex.Unlock("g1")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100, got %d", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	mutex := NewKeyedMutex()
	mutex.Lock("g1")
	defer mutex.Unlock("g1")

	done := make(chan struct{})
	go func() {
		mutex.Lock("g2")
		mutex.Unlock("g2")
		close(done)
	}()
	<-done
}
