package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFoldsDefaultWindows(t *testing.T) {
	t.Parallel()

	// 504 periods with 252/63 windows: the 21-period step is floored at the
	// 63-period test width, so folds start at 0, 63, 126 and 189.
	folds, err := BuildFolds(504, WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 21})
	require.NoError(t, err)
	require.Len(t, folds, 4)

	for i, f := range folds {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, 252, f.Train.Len())
		assert.Equal(t, 63, f.Test.Len())
		assert.Equal(t, f.Train.End, f.Test.Start, "test must start exactly where train ends")
	}
	assert.Equal(t, 0, folds[0].Train.Start)
	assert.Equal(t, 189, folds[3].Train.Start)
}

func TestBuildFoldsTestWindowsDisjointAndOrdered(t *testing.T) {
	t.Parallel()

	cases := []WindowConfig{
		{TrainWindow: 252, TestWindow: 63, Step: 21},
		{TrainWindow: 100, TestWindow: 25, Step: 25},
		{TrainWindow: 50, TestWindow: 10, Step: 40},
	}
	for _, cfg := range cases {
		folds, err := BuildFolds(1000, cfg)
		require.NoError(t, err)
		require.NotEmpty(t, folds)
		for i := 1; i < len(folds); i++ {
			assert.LessOrEqual(t, folds[i-1].Test.End, folds[i].Test.Start,
				"out-of-sample windows must never overlap or reorder")
		}
	}
}

func TestBuildFoldsStepWiderThanTest(t *testing.T) {
	t.Parallel()

	// A step wider than the test window is honored as-is and leaves gaps.
	folds, err := BuildFolds(300, WindowConfig{TrainWindow: 100, TestWindow: 20, Step: 50})
	require.NoError(t, err)
	require.Len(t, folds, 4)
	assert.Equal(t, 50, folds[1].Train.Start)
	assert.Equal(t, 150, folds[3].Train.Start)
}

func TestBuildFoldsExactFit(t *testing.T) {
	t.Parallel()

	folds, err := BuildFolds(315, WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 21})
	require.NoError(t, err)
	require.Len(t, folds, 1)
	assert.Equal(t, 315, folds[0].Test.End)
}

func TestBuildFoldsInsufficientData(t *testing.T) {
	t.Parallel()

	_, err := BuildFolds(314, WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 21})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestWindowConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  WindowConfig
		ok   bool
	}{
		{"valid", WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 21}, true},
		{"zero train", WindowConfig{TrainWindow: 0, TestWindow: 63, Step: 21}, false},
		{"one period test", WindowConfig{TrainWindow: 252, TestWindow: 1, Step: 21}, false},
		{"zero step", WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
