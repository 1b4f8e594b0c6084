package file

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

// writeWAV writes a 16-bit stereo 44.1kHz WAV with constant sample values
func writeWAV(t *testing.T, frames, left, right int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "replay.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating WAV: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Data:           make([]int, frames*2),
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		buf.Data[i*2] = left
		buf.Data[i*2+1] = right
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing WAV encoder: %v", err)
	}
	return path
}

// sampleSink collects decoded samples from every fragment
type sampleSink struct {
	fragments int
	samples   []float32
}

func (s *sampleSink) OnFragment(f pipeline.Fragment) {
	defer f.Release()
	s.fragments++
	s.samples = audio.DecodeFloat32LE(s.samples, f.Data)
}

type formatNotifier struct {
	spec audio.SampleSpec
	cmap audio.ChannelMap
}

func (n *formatNotifier) StreamOpening(spec audio.SampleSpec, cmap audio.ChannelMap) {
	n.spec, n.cmap = spec, cmap
}

func (n *formatNotifier) StreamStarted() {}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runWithTimeout(t *testing.T, tr pipeline.Transport, m *pipeline.Machine) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := pipeline.Run(ctx, tr, m)
	if ctx.Err() != nil {
		t.Fatal("replay did not finish in time")
	}
	return err
}

func TestTransport_ReplaysWholeFile(t *testing.T) {
	path := writeWAV(t, 4410, 16384, -8192)

	tr := New(Options{Path: path, FragmentMs: 25, Logger: quietLogger()})
	defer tr.Close()

	sink := &sampleSink{}
	notifier := &formatNotifier{}
	m := pipeline.NewMachine(tr, sink,
		pipeline.WithNotifier(notifier),
		pipeline.WithLogger(quietLogger()))

	if err := runWithTimeout(t, tr, m); err != nil {
		t.Fatalf("Run returned %v, want clean end of file", err)
	}

	if !m.Done() || m.StreamState() != pipeline.StreamTerminated {
		t.Errorf("stream state = %s, want terminated", m.StreamState())
	}

	want := audio.SampleSpec{Format: audio.FormatFloat32LE, Rate: 44100, Channels: 2}
	if notifier.spec != want {
		t.Errorf("negotiated %v, want %v", notifier.spec, want)
	}
	if notifier.cmap.String() != "front-left,front-right" {
		t.Errorf("channel map = %s", notifier.cmap)
	}

	if len(sink.samples) != 4410*2 {
		t.Errorf("received %d samples, want %d", len(sink.samples), 4410*2)
	}
	// 25ms fragments of 1102 frames: four full plus a two frame tail
	if sink.fragments < 5 {
		t.Errorf("received %d fragments, want at least 5", sink.fragments)
	}
	if len(sink.samples) >= 2 {
		if math.Abs(float64(sink.samples[0])-0.5) > 1e-3 || math.Abs(float64(sink.samples[1])+0.25) > 1e-3 {
			t.Errorf("first frame = %v, want ~[0.5 -0.25]", sink.samples[:2])
		}
	}
}

func TestTransport_MissingFile(t *testing.T) {
	tr := New(Options{Path: filepath.Join(t.TempDir(), "missing.wav"), Logger: quietLogger()})
	defer tr.Close()

	m := pipeline.NewMachine(tr, &sampleSink{}, pipeline.WithLogger(quietLogger()))
	err := runWithTimeout(t, tr, m)
	if !errors.Is(err, pipeline.ErrConnectionFailed) {
		t.Errorf("Run returned %v, want connection failure", err)
	}
}

func TestTransport_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := New(Options{Path: path, Logger: quietLogger()})
	defer tr.Close()

	m := pipeline.NewMachine(tr, &sampleSink{}, pipeline.WithLogger(quietLogger()))
	if err := runWithTimeout(t, tr, m); !errors.Is(err, pipeline.ErrConnectionFailed) {
		t.Errorf("Run returned %v, want connection failure", err)
	}
}

func TestTransport_MismatchedStreamSpec(t *testing.T) {
	path := writeWAV(t, 100, 0, 0)

	tr := New(Options{Path: path, Logger: quietLogger()})
	defer tr.Close()

	tr.Connect()
	if ev := <-tr.Events(); ev.(pipeline.SessionChanged).State != pipeline.SessionReady {
		t.Fatalf("got %#v, want session ready", ev)
	}

	tr.CreateStream(audio.SampleSpec{Format: audio.FormatFloat32LE, Rate: 48000, Channels: 2},
		audio.DefaultChannelMap(2), path)

	ev := <-tr.Events()
	sc, ok := ev.(pipeline.StreamChanged)
	if !ok || sc.State != pipeline.StreamFailed || sc.Err == nil {
		t.Errorf("got %#v, want stream failure", ev)
	}
}

func TestTransport_RealtimePacing(t *testing.T) {
	// 100ms of audio in 25ms fragments
	path := writeWAV(t, 4410, 1000, 1000)

	tr := New(Options{Path: path, FragmentMs: 25, Realtime: true, Logger: quietLogger()})
	defer tr.Close()

	m := pipeline.NewMachine(tr, &sampleSink{}, pipeline.WithLogger(quietLogger()))

	start := time.Now()
	if err := runWithTimeout(t, tr, m); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Errorf("replay took %v, want roughly real time", elapsed)
	}
}

// countingDecoder produces silence forever and counts Close calls
type countingDecoder struct {
	mu     sync.Mutex
	closes int
}

func (d *countingDecoder) ReadChunk(numFrames int) ([]float32, error) {
	return make([]float32, numFrames*2), nil
}

func (d *countingDecoder) SampleRate() int  { return 1000 }
func (d *countingDecoder) NumChannels() int { return 2 }

func (d *countingDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *countingDecoder) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

var countingSpec = audio.SampleSpec{Format: audio.FormatFloat32LE, Rate: 1000, Channels: 2}

func TestTransport_CloseBeforeStreamClosesDecoderOnce(t *testing.T) {
	dec := &countingDecoder{}
	tr := New(Options{Path: "silence.wav", Logger: quietLogger()})
	tr.decoder = dec

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	tr.CreateStream(countingSpec, audio.DefaultChannelMap(2), "silence.wav")
	tr.wg.Wait()

	if n := dec.closeCount(); n != 1 {
		t.Errorf("decoder closed %d times, want 1", n)
	}
}

func TestTransport_CloseDuringReplayClosesDecoderOnce(t *testing.T) {
	dec := &countingDecoder{}
	tr := New(Options{Path: "silence.wav", FragmentMs: 10, Logger: quietLogger()})
	tr.decoder = dec

	tr.CreateStream(countingSpec, audio.DefaultChannelMap(2), "silence.wav")
	if sc, ok := (<-tr.Events()).(pipeline.StreamChanged); !ok || sc.State != pipeline.StreamReady {
		t.Fatalf("got %#v, want stream ready", sc)
	}
	fa, ok := (<-tr.Events()).(pipeline.FragmentAvailable)
	if !ok {
		t.Fatal("want a fragment after stream ready")
	}
	fa.Fragment.Release()

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	// Close leaves the decoder to the replay
	tr.wg.Wait()

	if n := dec.closeCount(); n != 1 {
		t.Errorf("decoder closed %d times, want 1", n)
	}
}

func TestTransport_CloseBeforeConnectDropsDecoder(t *testing.T) {
	path := writeWAV(t, 100, 0, 0)
	tr := New(Options{Path: path, Logger: quietLogger()})

	tr.Close()
	tr.Connect()
	tr.wg.Wait()

	if dec := tr.currentDecoder(); dec != nil {
		t.Error("decoder kept after Close")
	}
}
