package filter

// Routing selects how the two filters of a Bank are combined.
type Routing int

const (
	// Serial feeds Filter1 into Filter2
	Serial Routing = iota
	// Parallel sums both filters fed by the same input
	Parallel
)

// RoutingNames lists the routings in enum order.
var RoutingNames = []string{"Serial", "Parallel"}

// Bank is the dual per-voice filter.
type Bank struct {
	Filter1 Filter
	Filter2 Filter
	Routing Routing
}

// Init prepares both filters.
func (b *Bank) Init(sampleRate float64) {
	b.Filter1.Init(sampleRate)
	b.Filter2.Init(sampleRate)
}

// Update sets both filter slots.
func (b *Bank) Update(f1, f2 Settings, routing Routing) {
	b.Filter1.Update(f1)
	b.Filter2.Update(f2)
	b.Routing = routing
}

// Process runs one sample of channel ch through the bank.
func (b *Bank) Process(in float32, ch int) float32 {
	if b.Routing == Parallel && b.Filter2.set.Type != TypeOff {
		if b.Filter1.set.Type == TypeOff {
			return b.Filter2.Process(in, ch)
		}
		return 0.5 * (b.Filter1.Process(in, ch) + b.Filter2.Process(in, ch))
	}
	return b.Filter2.Process(b.Filter1.Process(in, ch), ch)
}

// Reset zeros both filters.
func (b *Bank) Reset() {
	b.Filter1.Reset()
	b.Filter2.Reset()
}
