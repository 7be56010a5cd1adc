package gpio

import "errors"

// FakeReader is a test double that returns scripted input samples.
type FakeReader struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	index int

	Closed    bool
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Set replaces the script with a single held sample.
func (f *FakeReader) Set(s Sample) {
	f.Samples = []Sample{s}
	f.index = 0
}

// DriveState is the pair of output levels after a write.
type DriveState struct {
	Open  bool
	Close bool
}

// FakeDriver records every output change.
type FakeDriver struct {
	OpenOn  bool
	CloseOn bool

	// History holds the output pair after each successful write.
	History []DriveState
	// Overlap is set if both outputs were ever asserted together.
	Overlap bool

	Closed   bool
	SetError error
}

// NewFakeDriver creates an idle FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

func (f *FakeDriver) record() {
	if f.OpenOn && f.CloseOn {
		f.Overlap = true
	}
	f.History = append(f.History, DriveState{Open: f.OpenOn, Close: f.CloseOn})
}

// SetOpen sets the open output.
func (f *FakeDriver) SetOpen(asserted bool) error {
	if f.SetError != nil && asserted {
		return f.SetError
	}
	f.OpenOn = asserted
	f.record()
	return nil
}

// SetClose sets the close output.
func (f *FakeDriver) SetClose(asserted bool) error {
	if f.SetError != nil && asserted {
		return f.SetError
	}
	f.CloseOn = asserted
	f.record()
	return nil
}

// Close idles both outputs and marks the driver closed.
func (f *FakeDriver) Close() error {
	f.OpenOn = false
	f.CloseOn = false
	f.Closed = true
	return nil
}
