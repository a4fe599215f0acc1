package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/456meh456/tu-nerr/vibes"
)

const testRate = 22050

func sine(freq float64, seconds int) []float64 {
	n := seconds * testRate
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

// clickTrain places a short burst every `period` samples.
func clickTrain(period, seconds int) []float64 {
	n := seconds * testRate
	out := make([]float64, n)
	for pos := 0; pos < n; pos += period {
		for j := 0; j < 64 && pos+j < n; j++ {
			out[pos+j] = 0.9
		}
	}
	return out
}

// ------------------------------------------------------
// Brightness: spectral centroid against the fixed ceiling
// ------------------------------------------------------

func TestAnalyzeWave_BrightnessOfPureTone(t *testing.T) {
	feat, err := analyzeWave(context.Background(), sine(3000, 5), testRate)
	require.NoError(t, err)

	want := 3000.0 / brightnessRef
	require.InDelta(t, want, feat.Brightness, 0.06,
		"3kHz tone should land near 3000/%v", brightnessRef)
}

func TestAnalyzeWave_BrighterToneScoresHigher(t *testing.T) {
	dark, err := analyzeWave(context.Background(), sine(500, 5), testRate)
	require.NoError(t, err)
	bright, err := analyzeWave(context.Background(), sine(6000, 5), testRate)
	require.NoError(t, err)

	require.Greater(t, bright.Brightness, dark.Brightness)
	require.GreaterOrEqual(t, dark.Brightness, 0.0)
	require.LessOrEqual(t, bright.Brightness, 1.0)
}

// ------------------------------------------------------
// Tempo: onset autocorrelation on a synthetic beat
// ------------------------------------------------------

func TestAnalyzeWave_TempoOfClickTrain(t *testing.T) {
	// period of 20 hops exactly, so frame alignment is clean
	period := 20 * hopSize
	feat, err := analyzeWave(context.Background(), clickTrain(period, 10), testRate)
	require.NoError(t, err)

	frameRate := float64(testRate) / hopSize
	want := 60 * frameRate / 20 // ~129.2 BPM
	require.InDelta(t, want, feat.BPM, 3.0)
}

func TestAnalyzeWave_NoOnsetsMeansNoTempo(t *testing.T) {
	// perfect silence has onsets nowhere
	feat, err := analyzeWave(context.Background(), make([]float64, 5*testRate), testRate)
	if err != nil {
		// silent clip rejected outright is also acceptable
		require.ErrorIs(t, err, vibes.ErrFeatureUnavailable)
		return
	}
	require.Zero(t, feat.BPM)
}

// ------------------------------------------------------
// Failure modes are ErrFeatureUnavailable, never a hang
// ------------------------------------------------------

func TestAnalyzeWave_TooShort(t *testing.T) {
	_, err := analyzeWave(context.Background(), sine(3000, 1), testRate)
	if !errors.Is(err, vibes.ErrFeatureUnavailable) {
		t.Fatalf("sub-minimum clip should be ErrFeatureUnavailable, got %v", err)
	}
}

func TestAnalyzeWave_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := analyzeWave(ctx, sine(3000, 10), testRate)
	if !errors.Is(err, vibes.ErrFeatureUnavailable) {
		t.Fatalf("canceled analysis should be ErrFeatureUnavailable, got %v", err)
	}
}

func TestExtract_EmptyStream(t *testing.T) {
	_, err := Extract(context.Background(), bytes.NewReader(nil))
	if !errors.Is(err, vibes.ErrFeatureUnavailable) {
		t.Fatalf("empty stream should be ErrFeatureUnavailable, got %v", err)
	}
}

func TestExtract_NotAudio(t *testing.T) {
	garbage := bytes.Repeat([]byte("definitely not an mp3 "), 64)
	_, err := Extract(context.Background(), bytes.NewReader(garbage))
	if !errors.Is(err, vibes.ErrFeatureUnavailable) {
		t.Fatalf("garbage bytes should be ErrFeatureUnavailable, got %v", err)
	}
}

func TestExtract_NilReader(t *testing.T) {
	_, err := Extract(context.Background(), nil)
	require.ErrorIs(t, err, vibes.ErrFeatureUnavailable)
}
