package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/codec"
	"go.trai.ch/memo/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := codec.New("")
	require.NoError(t, err)
	assert.Equal(t, codec.JSONName, c.Name())

	c, err = codec.New(codec.CBORName)
	require.NoError(t, err)
	assert.Equal(t, codec.CBORName, c.Name())

	_, err = codec.New("xml")
	assert.ErrorContains(t, err, domain.ErrUnknownCodec.Error())
}

func TestCodecs_BuildResult(t *testing.T) {
	t.Parallel()

	out := domain.NewContentHash(domain.HashBlake3, []byte{0xaa, 0xbb})
	result := domain.NewNodeBuildResult(map[string]domain.ContentHash{"bin/app": out}, 3*time.Second)

	for _, name := range []string{codec.JSONName, codec.CBORName} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := codec.New(name)
			require.NoError(t, err)

			data, err := c.Marshal(result)
			require.NoError(t, err)

			var got domain.NodeBuildResult
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, result.Outputs, got.Outputs)
			assert.Equal(t, result.Duration, got.Duration)
			assert.True(t, result.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestCodecs_EmptySelectorSurvives(t *testing.T) {
	t.Parallel()

	bucket := domain.SelectorBucket{Selectors: []domain.Selector{domain.EmptySelector}}
	for _, name := range []string{codec.JSONName, codec.CBORName} {
		c, err := codec.New(name)
		require.NoError(t, err)

		data, err := c.Marshal(bucket)
		require.NoError(t, err)

		var got domain.SelectorBucket
		require.NoError(t, c.Unmarshal(data, &got))
		require.Len(t, got.Selectors, 1)
		assert.True(t, got.Selectors[0].IsEmpty(), name)
	}
}

func TestJSON_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	var got domain.PathSetRecord
	err := codec.JSON{}.Unmarshal([]byte(`{"paths":["a.h"],"future":{"x":1}}`), &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h"}, got.Paths)
}

func TestCBOR_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	c, err := codec.NewCBOR()
	require.NoError(t, err)

	type futureRecord struct {
		Paths []string `cbor:"1,keyasint"`
		Extra string   `cbor:"9,keyasint"`
	}
	data, err := c.Marshal(futureRecord{Paths: []string{"a.h"}, Extra: "new"})
	require.NoError(t, err)

	var got domain.PathSetRecord
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, []string{"a.h"}, got.Paths)
}

func TestCBOR_Deterministic(t *testing.T) {
	t.Parallel()

	c, err := codec.NewCBOR()
	require.NoError(t, err)

	h := domain.NewContentHash(domain.HashXXH64, []byte{1})
	r := &domain.NodeBuildResult{Outputs: map[string]domain.ContentHash{"b": h, "a": h, "c": h}}
	first, err := c.Marshal(r)
	require.NoError(t, err)
	for range 10 {
		next, err := c.Marshal(r)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}
