// Package broadcast provides a type-safe multicast sink with a bounded
// pending buffer for best-effort fan-out to many subscribers.
//
// Push is always non-blocking: when the pending buffer is full the item
// is dropped and logged. Items pushed while nobody is subscribed stay
// in the buffer (up to its capacity) and are delivered once the first
// subscriber arrives. Each subscriber has its own buffered channel;
// a slow subscriber loses items without affecting the others.
//
//	sink := broadcast.NewSink[string](1000)
//	defer sink.Close()
//
//	sub := sink.Subscribe(ctx)
//	sink.Push("hello")
//
//	for item := range sub.C() {
//	    fmt.Println(item)
//	}
//
// The sink is created once at process start and passed by reference to
// producers and consumers; there is no ambient global instance.
package broadcast
