package linkage

// History is a sliding window over the most recent values.
type History struct {
	values   []float64
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v and drops the oldest value once the window is over
// capacity.
func (h *History) Push(v float64) {
	h.values = append(h.values, v)
	if len(h.values) > h.capacity {
		h.values = h.values[1:]
	}
}

// Values returns the window, oldest first. The slice is only valid until
// the next Push.
func (h *History) Values() []float64 { return h.values }

func (h *History) Len() int      { return len(h.values) }
func (h *History) Capacity() int { return h.capacity }

func (h *History) Last() (float64, bool) {
	if len(h.values) == 0 {
		return 0, false
	}
	return h.values[len(h.values)-1], true
}

func (h *History) Reset() { h.values = h.values[:0] }

// Trends keeps the history of the quantities plotted next to the animation.
type Trends struct {
	X        *History
	DY       *History
	Vertical *History
	Theta    *History
}

func NewTrends(capacity int) *Trends {
	return &Trends{
		X:        NewHistory(capacity),
		DY:       NewHistory(capacity),
		Vertical: NewHistory(capacity),
		Theta:    NewHistory(capacity),
	}
}

func (tr *Trends) Record(f Frame) {
	tr.X.Push(f.X)
	tr.DY.Push(f.DY)
	tr.Vertical.Push(f.VerticalLength)
	tr.Theta.Push(f.Theta)
}

func (tr *Trends) Reset() {
	tr.X.Reset()
	tr.DY.Reset()
	tr.Vertical.Reset()
	tr.Theta.Reset()
}
