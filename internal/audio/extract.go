// Package audio turns a preview clip into two physical measurements:
// tempo (BPM, onset autocorrelation) and brightness (mean spectral
// centroid scaled into [0,1]). Every failure mode is reported as
// vibes.ErrFeatureUnavailable so callers fall back to tag heuristics
// instead of aborting a harvest.
package audio

import (
	"context"
	"fmt"
	"io"
	"math"

	mp3 "github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/456meh456/tu-nerr/vibes"
)

const (
	frameSize = 2048
	hopSize   = 512

	// brightnessRef is the fixed mean-centroid ceiling in Hz. A shared
	// constant, not a per-clip fit, so brightness is comparable across
	// artists harvested months apart.
	brightnessRef = 3569.1107

	// previews are ~30s; anything past that is ignored
	maxAnalyzeSeconds = 30
	minAnalyzeSeconds = 2

	minBPM = 60
	maxBPM = 200
)

// Features are the raw measurements. BPM is 0 when no usable onset
// pattern was found (steady drones, pads).
type Features struct {
	BPM        float64
	Brightness float64
}

// Extract decodes an MP3 preview stream and measures it. The context
// is consulted throughout, so a stuck decode is abandoned when the
// caller's deadline fires rather than hanging the harvest.
func Extract(ctx context.Context, r io.Reader) (Features, error) {
	if r == nil {
		return Features{}, fmt.Errorf("no preview stream: %w", vibes.ErrFeatureUnavailable)
	}

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Features{}, fmt.Errorf("decode mp3: %v: %w", err, vibes.ErrFeatureUnavailable)
	}

	sampleRate := dec.SampleRate()
	mono, err := readMono(ctx, dec, sampleRate)
	if err != nil {
		return Features{}, err
	}
	return analyzeWave(ctx, mono, sampleRate)
}

// readMono pulls decoded PCM (16-bit little-endian stereo) and downmixes
// to mono float64 in [-1,1], capped at maxAnalyzeSeconds.
func readMono(ctx context.Context, dec *mp3.Decoder, sampleRate int) ([]float64, error) {
	maxSamples := maxAnalyzeSeconds * sampleRate
	mono := make([]float64, 0, maxSamples)

	buf := make([]byte, 16384)
	var carry []byte
	for len(mono) < maxSamples {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("decode canceled: %w", vibes.ErrFeatureUnavailable)
		}
		n, err := dec.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if len(carry) > 0 {
				chunk = append(carry, chunk...)
				carry = nil
			}
			// 4 bytes per stereo frame
			whole := len(chunk) / 4 * 4
			for i := 0; i+3 < whole; i += 4 {
				l := int16(uint16(chunk[i]) | uint16(chunk[i+1])<<8)
				r := int16(uint16(chunk[i+2]) | uint16(chunk[i+3])<<8)
				mono = append(mono, (float64(l)+float64(r))/2/32768)
			}
			if whole < len(chunk) {
				carry = append(carry, chunk[whole:]...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pcm: %v: %w", err, vibes.ErrFeatureUnavailable)
		}
	}
	if len(mono) > maxSamples {
		mono = mono[:maxSamples]
	}
	return mono, nil
}

// analyzeWave runs the STFT pipeline over a mono waveform.
func analyzeWave(ctx context.Context, samples []float64, sampleRate int) (Features, error) {
	if sampleRate <= 0 || len(samples) < minAnalyzeSeconds*sampleRate {
		return Features{}, fmt.Errorf("clip too short (%d samples): %w",
			len(samples), vibes.ErrFeatureUnavailable)
	}

	fft := fourier.NewFFT(frameSize)
	window := hann(frameSize)
	frame := make([]float64, frameSize)
	prevMag := make([]float64, frameSize/2+1)
	mag := make([]float64, frameSize/2+1)
	coeffs := make([]complex128, frameSize/2+1)

	var centroidSum float64
	var centroidFrames int
	var flux []float64

	for start := 0; start+frameSize <= len(samples); start += hopSize {
		if len(flux)%64 == 0 {
			if err := ctx.Err(); err != nil {
				return Features{}, fmt.Errorf("analysis canceled: %w", vibes.ErrFeatureUnavailable)
			}
		}

		for i := 0; i < frameSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		var weighted, total, onset float64
		for k := range coeffs {
			m := cmplxAbs(coeffs[k])
			mag[k] = m
			weighted += m * float64(k) * float64(sampleRate) / frameSize
			total += m
			if d := m - prevMag[k]; d > 0 {
				onset += d
			}
		}
		if total > 0 {
			centroidSum += weighted / total
			centroidFrames++
		}
		flux = append(flux, onset)
		prevMag, mag = mag, prevMag
	}

	if centroidFrames == 0 {
		return Features{}, fmt.Errorf("silent clip: %w", vibes.ErrFeatureUnavailable)
	}

	meanCentroid := centroidSum / float64(centroidFrames)
	feat := Features{
		Brightness: vibes.Clamp01(meanCentroid / brightnessRef),
		BPM:        tempoFromOnsets(flux, float64(sampleRate)/hopSize),
	}
	return feat, nil
}

// tempoFromOnsets autocorrelates the onset envelope over the lag window
// for minBPM..maxBPM and converts the strongest lag to BPM. Returns 0
// when the envelope has no usable onset pattern.
func tempoFromOnsets(flux []float64, frameRate float64) float64 {
	if len(flux) == 0 {
		return 0
	}
	// the initial spectral-flux spike is the clip starting, not a beat
	flux[0] = 0

	var peak float64
	for _, f := range flux {
		if f > peak {
			peak = f
		}
	}
	if peak <= 0 {
		return 0
	}
	active := 0
	for _, f := range flux {
		if f > 0.1*peak {
			active++
		}
	}
	if active < 8 {
		return 0
	}

	// mean-subtract so sustained energy does not flatten the peaks
	var mean float64
	for _, f := range flux {
		mean += f
	}
	mean /= float64(len(flux))
	env := make([]float64, len(flux))
	for i, f := range flux {
		env[i] = f - mean
	}

	minLag := int(60 * frameRate / maxBPM)
	maxLag := int(math.Ceil(60 * frameRate / minBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}
	if maxLag < minLag {
		return 0
	}

	bestLag, bestScore := 0, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := 0; i+lag < len(env); i++ {
			score += env[i] * env[i+lag]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 || bestScore <= 0 {
		return 0
	}
	return 60 * frameRate / float64(bestLag)
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
