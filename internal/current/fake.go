package current

// FakeSampler returns a settable reading.
type FakeSampler struct {
	Value  float64
	Err    error
	Closed bool
}

// Amps returns Value or Err.
func (f *FakeSampler) Amps() (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}

// Close marks the sampler closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}

// None is used when no current sensor is fitted. It always reads zero, so
// obstruction detection is effectively disabled.
type None struct{}

func (None) Amps() (float64, error) { return 0, nil }
func (None) Close() error           { return nil }
