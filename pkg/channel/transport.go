package channel

// Transport identifies the mechanism a Channel uses to propagate values
// across execution contexts. Picked once at construction (see New),
// never re-evaluated.
type Transport int

const (
	// TransportNone means the channel delivers locally only. Not reachable
	// through the public constructor (a default bus always exists); kept
	// as the zero value so an uninitialized Transport is never mistaken
	// for a real one.
	TransportNone Transport = iota

	// TransportBroadcast is the in-process fanout bus. Preferred: values
	// travel as structured data with no serialization and no added latency.
	TransportBroadcast

	// TransportStorageEvent is a shared store with change notifications.
	// Nearly free (event-driven) wherever the notifications are reliable.
	TransportStorageEvent

	// TransportPolling reads the shared store on a fixed interval and
	// diffs raw text. Trades CPU and latency for correctness on stores
	// whose change notifications don't fire across contexts.
	TransportPolling
)

func (t Transport) String() string {
	switch t {
	case TransportBroadcast:
		return "broadcast"
	case TransportStorageEvent:
		return "storage-event"
	case TransportPolling:
		return "polling"
	default:
		return "none"
	}
}
