package field

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/patchkernel/engine/ir"
	"github.com/patchkernel/engine/transform"
)

// SignalSampler resolves a signal-expression id to its current scalar
// value, for FieldSampleSignal nodes (spec §4.3 "sampleSignal(exprId)").
// The executor supplies this so package field never has to know how to
// evaluate the signal-expression DAG itself.
type SignalSampler func(id ir.SigExprID) float64

// SlotVersionReader reports how many times a ValueSlot has been written
// over its store's whole lifetime. The materializer uses this to fold a
// field recipe's upstream slot dependencies into its cache key (spec §4.3
// "upstream-slot-versions") without needing to know anything about
// valuestore.Store itself.
type SlotVersionReader func(slot ir.ValueSlot) uint64

// Cache memoizes materialize walks by (FieldExprID, domain version,
// upstream-dependency fingerprint) (spec §4.3 "a field materialization is
// keyed by (FieldExprId, domain-version, upstream-slot-versions)"). The
// dependency fingerprint is recomputed cheaply (one pass over the recipe's
// nodes, not its elements) on every call, so an unchanged recipe hits the
// same key frame after frame — satisfying spec.md:232's "cache hit ratio
// ... must reach 100% after frame 1" — while a recipe that samples a
// changing signal or reads a rewritten slot naturally misses (SPEC_FULL.md
// §11 golang-lru wiring).
type Cache struct {
	lru *lru.Cache[cacheKey, []float64]
}

type cacheKey struct {
	field  ir.FieldExprID
	domVer uint64
	depFP  uint64
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[cacheKey, []float64](size)
	return &Cache{lru: c}
}

// Materializer walks FieldExprIR recipes against one CompiledProgram's
// tables.
type Materializer struct {
	exprs  []ir.FieldExprIR
	consts *ir.ConstantPool
	xreg   *transform.Registry
	chains []ir.TransformChainIR
	pool   *Pool
	cache  *Cache
}

func NewMaterializer(exprs []ir.FieldExprIR, consts *ir.ConstantPool, chains []ir.TransformChainIR, xreg *transform.Registry, pool *Pool, cache *Cache) *Materializer {
	return &Materializer{exprs: exprs, consts: consts, xreg: xreg, chains: chains, pool: pool, cache: cache}
}

// Materialize walks id over domain and returns a pooled buffer the caller
// must Release once done with it (spec §5 "every pooled buffer checked
// out during a materialize walk is released when the walk completes,
// including on error paths"). slotVersion may be nil when the recipe is
// known not to reference FieldInputSlot (e.g. in isolated tests).
func (m *Materializer) Materialize(id ir.FieldExprID, domain Domain, sample SignalSampler, slotVersion SlotVersionReader) (buf *Buffer, err error) {
	// A single memoizing wrapper around sample is shared by the
	// fingerprint pass below and the real walk on a cache miss, so a
	// recipe that samples the same signal twice (once to compute the key,
	// once per FieldSampleSignal node it actually contains) only ever
	// evaluates that signal expression once per Materialize call — a
	// stateful signal (integrate, slewLimit, ...) is never double-applied
	// (spec §4.2 "stateful opcodes ... a single StateCell").
	memo := &memoSampler{underlying: sample, seen: make(map[ir.SigExprID]float64)}

	depFP, err := m.fingerprint(id, memo.get, slotVersion)
	if err != nil {
		return nil, err
	}
	key := cacheKey{field: id, domVer: domain.Version, depFP: depFP}
	if cached, ok := m.cache.lru.Get(key); ok {
		out := m.pool.Get(len(cached))
		copy(out.Data, cached)
		return out, nil
	}

	out := m.pool.Get(domain.Count)
	defer func() {
		if err != nil {
			out.Release()
		}
	}()

	if err := m.walkInto(id, domain, memo.get, out.Data); err != nil {
		return nil, err
	}

	cached := append([]float64(nil), out.Data...)
	m.cache.lru.Add(key, cached)
	return out, nil
}

// memoSampler caches each distinct SigExprID's sampled value for the
// lifetime of one Materialize call.
type memoSampler struct {
	underlying SignalSampler
	seen       map[ir.SigExprID]float64
}

func (m *memoSampler) get(id ir.SigExprID) float64 {
	if v, ok := m.seen[id]; ok {
		return v
	}
	var v float64
	if m.underlying != nil {
		v = m.underlying(id)
	}
	m.seen[id] = v
	return v
}

// fnvOffset64/fnvPrime64 are the standard FNV-1a constants, used here to
// fold a field recipe's upstream dependencies into one comparable cache
// key component without allocating (spec §4.3 "upstream-slot-versions").
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

func mixFP(h uint64, v uint64) uint64 {
	h ^= v
	h *= fnvPrime64
	return h
}

// fingerprint walks id's node shape (not its elements) and folds every
// upstream dependency it finds — a sampled signal's current value, an
// input slot's write version — into one uint64. Two calls with the same
// recipe and the same upstream state always produce the same fingerprint,
// and a changed dependency always produces a different one, which is
// exactly the property the materialize cache's key needs (spec §4.3).
func (m *Materializer) fingerprint(id ir.FieldExprID, sample SignalSampler, slotVersion SlotVersionReader) (uint64, error) {
	node, err := m.nodeAt(id)
	if err != nil {
		return 0, err
	}

	h := uint64(fnvOffset64)
	h = mixFP(h, uint64(node.Kind))

	switch node.Kind {
	case ir.FieldConst:
		h = mixFP(h, uint64(node.Const))

	case ir.FieldInputSlot:
		if slotVersion != nil {
			h = mixFP(h, slotVersion(node.Slot))
		}

	case ir.FieldSampleSignal:
		if sample != nil {
			h = mixFP(h, math.Float64bits(sample(node.Signal)))
		}

	case ir.FieldMap, ir.FieldBusCombine:
		for _, in := range node.Inputs {
			sub, err := m.fingerprint(in, sample, slotVersion)
			if err != nil {
				return 0, err
			}
			h = mixFP(h, sub)
		}

	case ir.FieldZip:
		for _, in := range [2]ir.FieldExprID{node.A, node.B} {
			sub, err := m.fingerprint(in, sample, slotVersion)
			if err != nil {
				return 0, err
			}
			h = mixFP(h, sub)
		}

	case ir.FieldSelect:
		for _, in := range [3]ir.FieldExprID{node.Cond, node.A, node.B} {
			sub, err := m.fingerprint(in, sample, slotVersion)
			if err != nil {
				return 0, err
			}
			h = mixFP(h, sub)
		}

	case ir.FieldTransform:
		sub, err := m.fingerprint(node.Operand, sample, slotVersion)
		if err != nil {
			return 0, err
		}
		h = mixFP(h, sub)
		h = mixFP(h, uint64(node.Chain))

	default:
		return 0, fmt.Errorf("field: unhandled node kind %v", node.Kind)
	}

	return h, nil
}

func (m *Materializer) nodeAt(id ir.FieldExprID) (ir.FieldExprIR, error) {
	if int(id) < 0 || int(id) >= len(m.exprs) {
		return ir.FieldExprIR{}, fmt.Errorf("field: expr id %d out of range", id)
	}
	return m.exprs[id], nil
}

// walkInto evaluates node id per-element into dst, which must already be
// sized to domain.Count.
func (m *Materializer) walkInto(id ir.FieldExprID, domain Domain, sample SignalSampler, dst []float64) error {
	node, err := m.nodeAt(id)
	if err != nil {
		return err
	}

	switch node.Kind {
	case ir.FieldConst:
		// A ScriptedSeed block (package lower) materializes per-element
		// stochastic variation into the constant pool's Object lane as a
		// []float64 the same length as the domain it was authored against
		// (spec §3 invariant 5); every other FieldConst is an ordinary
		// scalar broadcast onto the domain.
		if arr, ok := m.consts.ObjectAt(node.Const); ok {
			if data, ok := arr.([]float64); ok && len(data) > 0 {
				for i := range dst {
					dst[i] = data[i%len(data)]
				}
				return nil
			}
		}
		v, _ := m.consts.F64At(node.Const)
		for i := range dst {
			dst[i] = v
		}
		return nil

	case ir.FieldInputSlot:
		// Caller resolves FieldInputSlot by reading the referenced
		// ValueSlot's current buffer directly (see schedule.materializeStep);
		// reaching here means a recipe referenced an input slot from
		// inside a sub-expression, which the lowering pipeline never emits
		// today (inputs are always the recipe's root, never an operand of
		// another node). Treat as a safe-default zero fill rather than a
		// panic (spec §7 "a runtime anomaly ... clamped to the type's
		// safe default").
		return nil

	case ir.FieldSampleSignal:
		v := sample(node.Signal)
		for i := range dst {
			dst[i] = v
		}
		return nil

	case ir.FieldMap:
		operands := make([][]float64, len(node.Inputs))
		for i, in := range node.Inputs {
			b, err := m.subBuffer(in, domain, sample)
			if err != nil {
				return err
			}
			defer b.Release()
			operands[i] = b.Data
		}
		return evalElementwise(node.Op, operands, dst)

	case ir.FieldZip:
		aBuf, err := m.subBuffer(node.A, domain, sample)
		if err != nil {
			return err
		}
		defer aBuf.Release()
		bBuf, err := m.subBuffer(node.B, domain, sample)
		if err != nil {
			return err
		}
		defer bBuf.Release()
		return evalElementwise(node.Op, [][]float64{aBuf.Data, bBuf.Data}, dst)

	case ir.FieldSelect:
		condBuf, err := m.subBuffer(node.Cond, domain, sample)
		if err != nil {
			return err
		}
		defer condBuf.Release()
		aBuf, err := m.subBuffer(node.A, domain, sample)
		if err != nil {
			return err
		}
		defer aBuf.Release()
		bBuf, err := m.subBuffer(node.B, domain, sample)
		if err != nil {
			return err
		}
		defer bBuf.Release()
		for i := range dst {
			if condBuf.Data[i] != 0 {
				dst[i] = aBuf.Data[i]
			} else {
				dst[i] = bBuf.Data[i]
			}
		}
		return nil

	case ir.FieldTransform:
		operandBuf, err := m.subBuffer(node.Operand, domain, sample)
		if err != nil {
			return err
		}
		defer operandBuf.Release()
		chain := m.chainAt(node.Chain)
		for i := range dst {
			out, err := transform.ApplyChain(m.xreg, transform.Number(operandBuf.Data[i]), chain)
			if err != nil {
				return err
			}
			dst[i] = out.AsFloat()
		}
		return nil

	case ir.FieldBusCombine:
		// Field-world buses are lowered to this node by lower/buses.go and
		// lower/pass7_buslower.go (see DESIGN.md), one per field-world bus
		// declaration; every listening block's own StepMaterialize walks
		// through it with that block's domain, so it is evaluated here as
		// a plain elementwise fold over the node's ordered publisher
		// Inputs, same as FieldMap.
		operands := make([][]float64, len(node.Inputs))
		for i, in := range node.Inputs {
			b, err := m.subBuffer(in, domain, sample)
			if err != nil {
				return err
			}
			defer b.Release()
			operands[i] = b.Data
		}
		return evalElementwise(node.Op, operands, dst)

	default:
		return fmt.Errorf("field: unhandled node kind %v", node.Kind)
	}
}

func (m *Materializer) subBuffer(id ir.FieldExprID, domain Domain, sample SignalSampler) (*Buffer, error) {
	buf := m.pool.Get(domain.Count)
	if err := m.walkInto(id, domain, sample, buf.Data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (m *Materializer) chainAt(id ir.TransformChainID) []ir.TransformStepIR {
	if int(id) < 0 || int(id) >= len(m.chains) {
		return nil
	}
	return m.chains[id].Steps
}

// evalElementwise applies op pointwise across operands into dst (spec
// §4.3 "map(op, inputs[])" / "zip(op, a, b)").
func evalElementwise(op ir.Opcode, operands [][]float64, dst []float64) error {
	switch op {
	case ir.OpAdd:
		for i := range dst {
			var sum float64
			for _, o := range operands {
				sum += o[i]
			}
			dst[i] = sum
		}
	case ir.OpSub:
		for i := range dst {
			dst[i] = operands[0][i] - operands[1][i]
		}
	case ir.OpMul:
		for i := range dst {
			prod := 1.0
			for _, o := range operands {
				prod *= o[i]
			}
			dst[i] = prod
		}
	case ir.OpDiv:
		for i := range dst {
			if operands[1][i] == 0 {
				dst[i] = 0
				continue
			}
			dst[i] = operands[0][i] / operands[1][i]
		}
	case ir.OpNeg:
		for i := range dst {
			dst[i] = -operands[0][i]
		}
	default:
		return fmt.Errorf("field: unsupported elementwise opcode %q", op)
	}
	return nil
}
