package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamCreatedEvent, 1)

	unsub := bus.Subscribe(func(e StreamCreatedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(StreamCreatedEvent{Name: "cam1", URL: "rtsp://a"})

	select {
	case got := <-received:
		if got.Name != "cam1" || got.URL != "rtsp://a" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamDeletedEvent, 1)

	unsub := bus.Subscribe(func(e StreamDeletedEvent) {
		received <- e
	})

	bus.Publish(StreamDeletedEvent{Name: "cam1"})
	<-received

	unsub()

	bus.Publish(StreamDeletedEvent{Name: "cam2"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	importReceived := make(chan bool, 1)
	changeReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ StreamsImportedEvent) {
		importReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ RegistryChangedEvent) {
		changeReceived <- true
	})
	defer unsub2()

	bus.Publish(StreamsImportedEvent{BatchID: "b1", Success: 1})
	<-importReceived

	select {
	case <-changeReceived:
		t.Fatal("registry subscriber should not receive import events")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ StreamUpdatedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(StreamUpdatedEvent{
					Name:      "cam1",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(EngineStatusEvent{Online: true})
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}
