package checksum

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkpoint struct {
	LastKey   string   `json:"lastKey"`
	Processed []string `json:"processed"`
	Bytes     int64    `json:"bytes"`
}

func newService(t *testing.T, algo Algorithm) *Service {
	t.Helper()
	s, err := New(algo)
	require.NoError(t, err)
	return s
}

func TestNew_DefaultsToSHA256(t *testing.T) {
	s := newService(t, "")
	assert.Equal(t, SHA256, s.Algorithm())
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New("md5")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestCompute_PrefixAndLength(t *testing.T) {
	for _, algo := range []Algorithm{SHA256, BLAKE2b} {
		t.Run(string(algo), func(t *testing.T) {
			sum, err := newService(t, algo).Compute(checkpoint{LastKey: "k"})
			require.NoError(t, err)

			prefix, hexPart, ok := strings.Cut(sum, ":")
			require.True(t, ok)
			assert.Equal(t, string(algo), prefix)
			assert.Len(t, hexPart, 64)
		})
	}
}

func TestCompute_MapOrderIndependent(t *testing.T) {
	s := newService(t, SHA256)

	a, err := s.Compute(map[string]any{"b": 2, "a": 1, "c": map[string]any{"y": 1, "x": 2}})
	require.NoError(t, err)
	b, err := s.Compute(map[string]any{"c": map[string]any{"x": 2, "y": 1}, "a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompute_StructMatchesEquivalentMap(t *testing.T) {
	s := newService(t, SHA256)

	fromStruct, err := s.Compute(checkpoint{LastKey: "k1", Processed: []string{"a"}, Bytes: 10})
	require.NoError(t, err)
	fromMap, err := s.Compute(map[string]any{"processed": []string{"a"}, "bytes": 10, "lastKey": "k1"})
	require.NoError(t, err)

	assert.Equal(t, fromStruct, fromMap)
}

func TestVerify(t *testing.T) {
	s := newService(t, SHA256)
	body := checkpoint{LastKey: "k1", Processed: []string{"a", "b"}, Bytes: 42}

	sum, err := s.Compute(body)
	require.NoError(t, err)

	ok, err := s.Verify(body, sum)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := body
	tampered.Bytes = 43
	ok, err = s.Verify(tampered, sum)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	body := checkpoint{LastKey: "k"}
	sum, err := newService(t, BLAKE2b).Compute(body)
	require.NoError(t, err)

	// a sha256-configured service still verifies blake2b checksums
	ok, err := newService(t, SHA256).Verify(body, sum)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_Malformed(t *testing.T) {
	s := newService(t, SHA256)

	_, err := s.Verify(checkpoint{}, "deadbeef")
	assert.ErrorIs(t, err, ErrMalformedChecksum)

	_, err = s.Verify(checkpoint{}, "crc32:deadbeef")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestCompute_Unmarshalable(t *testing.T) {
	_, err := newService(t, SHA256).Compute(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestCompute_ConcurrentUse(t *testing.T) {
	s := newService(t, SHA256)
	want, err := s.Compute(checkpoint{LastKey: "same"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Compute(checkpoint{LastKey: "same"})
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
