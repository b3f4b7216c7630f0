package inverse

// Observer receives one call per solver iteration with the reconstructed Pe
// list, the sum of squared residuals and the 1-based iteration index. The
// snapshot is a copy; observers cannot influence the solver.
type Observer interface {
	Observe(snapshot []float64, loss float64, iteration int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snapshot []float64, loss float64, iteration int)

// Observe implements Observer.
func (f ObserverFunc) Observe(snapshot []float64, loss float64, iteration int) {
	f(snapshot, loss, iteration)
}

// IterationRecord is one entry of the optimisation history.
type IterationRecord struct {
	Iteration int       `json:"iteration"`
	PeList    []float64 `json:"pe"`
	Loss      float64   `json:"loss"`
}

// History collects every iteration in order. The caller owns it.
type History struct {
	Records []IterationRecord `json:"records"`
}

// Observe implements Observer.
func (h *History) Observe(snapshot []float64, loss float64, iteration int) {
	h.Records = append(h.Records, IterationRecord{
		Iteration: iteration,
		PeList:    snapshot,
		Loss:      loss,
	})
}

// Len returns the number of recorded iterations.
func (h *History) Len() int {
	return len(h.Records)
}

// Losses returns the loss of every iteration.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.Loss
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) Observe(snapshot []float64, loss float64, iteration int) {
	for _, o := range m {
		if o == nil {
			continue
		}
		o.Observe(append([]float64(nil), snapshot...), loss, iteration)
	}
}

type nopObserver struct{}

func (nopObserver) Observe([]float64, float64, int) {}
