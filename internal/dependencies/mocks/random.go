package mocks

import (
	"strings"

	"github.com/redskie/bamaco/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int

	// StringResults is a queue of results to return from String
	StringResults []string
	stringIndex   int

	// BytesResults is a queue of results to return from Bytes
	BytesResults [][]byte
	bytesIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// String returns the next queued result, or the first alphabet character
// repeated length times if none remaining
func (r *MockRandom) String(length int, alphabet string) string {
	if r.stringIndex >= len(r.StringResults) {
		if alphabet == "" || length <= 0 {
			return ""
		}
		return strings.Repeat(alphabet[:1], length)
	}
	result := r.StringResults[r.stringIndex]
	r.stringIndex++
	return result
}

// Bytes returns the next queued result, or n zero bytes if none remaining
func (r *MockRandom) Bytes(n int) []byte {
	if r.bytesIndex >= len(r.BytesResults) {
		return make([]byte, n)
	}
	result := r.BytesResults[r.bytesIndex]
	r.bytesIndex++
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.StringResults = append(r.StringResults, values...)
}

// QueueBytes adds values to the Bytes result queue
func (r *MockRandom) QueueBytes(values ...[]byte) {
	r.BytesResults = append(r.BytesResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.IntnResults = nil
	r.intnIndex = 0
	r.StringResults = nil
	r.stringIndex = 0
	r.BytesResults = nil
	r.bytesIndex = 0
}
