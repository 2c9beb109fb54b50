package canbus

import (
	"log/slog"

	"github.com/tuffrabit/tinygo-flcm1/pkg/bitrange"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
)

// FilterValue is a span value extracted by a software filter.
type FilterValue struct {
	Filter  int
	ID      uint32
	Value   int64
	Bits    uint8
	ByteLen uint8
	Signed  bool
}

// OutputChange reports a comparator output that switched.
type OutputChange struct {
	Comparator int
	Active     bool
	Value      int64
}

// Result is what the software filters and comparators made of a message.
type Result struct {
	Values  []FilterValue
	Changes []OutputChange
}

type filterSpec struct {
	on      bool
	id      uint32
	span    bitrange.Span
	signed  bool
	bits    uint8
	byteLen uint8
	valid   bool
}

type comparatorSpec struct {
	on        bool
	filter    int
	threshold int64
	polarity  bool
}

// Evaluator runs software filters and comparators over accepted messages.
// Output states persist between messages.
type Evaluator struct {
	filters     [config.SoftwareFilterCount]filterSpec
	comparators [config.ComparatorCount]comparatorSpec
	outputs     [config.ComparatorCount]bool
	logger      *slog.Logger
}

// NewEvaluator returns an evaluator with every filter off.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// Configure loads the filters and comparators of s and clears all outputs.
func (e *Evaluator) Configure(s config.DeviceSettings) {
	for i, f := range s.SoftwareFilters {
		span := bitrange.Span{StartByte: f.StartByte, StartBit: f.StartBit, EndByte: f.EndByte, EndBit: f.EndBit}
		byteLen, bitLen, err := bitrange.Len(span)
		spec := filterSpec{on: f.On, id: f.CANID, span: span, signed: f.Signed, byteLen: byteLen, bits: bitrange.ValueBits(bitLen), valid: err == nil}
		if f.On && err != nil {
			e.logger.Warn("software filter disabled", "filter", i, "span", span, "err", err)
		}
		e.filters[i] = spec
	}
	for i, c := range s.Comparators {
		spec := comparatorSpec{on: c.On, filter: int(c.SoftwareFilter), polarity: c.Polarity}
		if spec.filter < config.SoftwareFilterCount {
			f := e.filters[spec.filter]
			spec.threshold = thresholdValue(c.Threshold, f.bits, f.signed)
		}
		e.comparators[i] = spec
	}
	e.outputs = [config.ComparatorCount]bool{}
}

// thresholdValue reads a stored threshold in the domain of a span of bits.
// Bits above the span are dropped.
func thresholdValue(raw uint64, bits uint8, signed bool) int64 {
	if signed {
		return bitrange.SignExtend(raw, bits)
	}
	if bits >= 64 {
		return int64(raw)
	}
	return int64(raw & (1<<bits - 1))
}

// fitValue keeps the low bits of an extracted value.
func fitValue(v int64, bits uint8, signed bool) int64 {
	if bits >= 64 {
		return v
	}
	u := uint64(v) & (1<<bits - 1)
	if signed {
		return bitrange.SignExtend(u, bits)
	}
	return int64(u)
}

// Process runs m through every enabled software filter with a matching ID
// and then through the comparators fed by those filters.
func (e *Evaluator) Process(m Message) Result {
	var res Result
	if m.RTR {
		return res
	}
	var matched [config.SoftwareFilterCount]bool
	var values [config.SoftwareFilterCount]int64

	for i := range e.filters {
		f := &e.filters[i]
		if !f.on || !f.valid || f.id != m.ID {
			continue
		}
		v, err := bitrange.Extract(m.Payload(), f.span, f.signed)
		if err != nil {
			e.logger.Debug("software filter skipped", "filter", i, "id", m.ID, "err", err)
			continue
		}
		v = fitValue(v, f.bits, f.signed)
		matched[i] = true
		values[i] = v
		res.Values = append(res.Values, FilterValue{Filter: i, ID: m.ID, Value: v, Bits: f.bits, ByteLen: f.byteLen, Signed: f.signed})
	}

	for i := range e.comparators {
		c := &e.comparators[i]
		if !c.on || c.filter >= config.SoftwareFilterCount || !matched[c.filter] {
			continue
		}
		v := values[c.filter]
		active := (v >= c.threshold) != c.polarity
		if active != e.outputs[i] {
			e.outputs[i] = active
			res.Changes = append(res.Changes, OutputChange{Comparator: i, Active: active, Value: v})
		}
	}
	return res
}

// Outputs returns every comparator output state.
func (e *Evaluator) Outputs() [config.ComparatorCount]bool { return e.outputs }

// AnyActive reports whether any comparator output is active.
func (e *Evaluator) AnyActive() bool {
	for _, on := range e.outputs {
		if on {
			return true
		}
	}
	return false
}
