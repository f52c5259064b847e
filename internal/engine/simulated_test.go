package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastWPM makes one word last 10ms at rate 1.
const fastWPM = 6000

func waitCompletion(t *testing.T, completion *core.Completion) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := completion.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)

	return err
}

func TestSimulated_FinishesNaturally(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(fastWPM, engine.SimulatedVoices())

	completion := sim.Speak(&core.Utterance{Text: "one two three", Rate: 1})
	assert.True(t, sim.Speaking())

	require.NoError(t, waitCompletion(t, completion))
	assert.False(t, sim.Speaking())
}

func TestSimulated_CancelResolvesCanceled(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(1, nil)

	completion := sim.Speak(&core.Utterance{Text: "a long speech", Rate: 1})
	sim.Cancel()

	require.ErrorIs(t, waitCompletion(t, completion), core.ErrSpeechCanceled)
	assert.False(t, sim.Speaking())
}

func TestSimulated_SpeakSupersedes(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(fastWPM, nil)

	first := sim.Speak(&core.Utterance{Text: "first", Rate: 0.01})
	second := sim.Speak(&core.Utterance{Text: "second", Rate: 1})

	require.ErrorIs(t, waitCompletion(t, first), core.ErrSpeechCanceled)
	require.NoError(t, waitCompletion(t, second))
}

func TestSimulated_PauseHoldsCompletion(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(fastWPM, nil)

	completion := sim.Speak(&core.Utterance{Text: "one two three four five", Rate: 1})
	require.NoError(t, sim.Pause())
	assert.True(t, sim.Paused())
	assert.True(t, sim.Speaking())

	select {
	case <-completion.Done():
		t.Fatal("paused utterance completed")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, sim.Resume())
	assert.False(t, sim.Paused())
	require.NoError(t, waitCompletion(t, completion))
}

func TestSimulated_SetVoicesNotifies(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(fastWPM, nil)
	assert.Empty(t, sim.Voices())

	notified := 0
	sim.OnVoicesChanged(func() { notified++ })

	sim.SetVoices(engine.SimulatedVoices())

	assert.Equal(t, 1, notified)
	assert.Len(t, sim.Voices(), len(engine.SimulatedVoices()))
	assert.True(t, sim.Available())
}

func TestSimulated_Duration(t *testing.T) {
	t.Parallel()

	sim := engine.NewSimulated(60, nil)

	assert.Equal(t, 2*time.Second, sim.Duration(&core.Utterance{Text: "two words", Rate: 1}))
	assert.Equal(t, time.Second, sim.Duration(&core.Utterance{Text: "two words", Rate: 2}))
	assert.Equal(t, time.Second, sim.Duration(&core.Utterance{Text: "", Rate: 1}))
}

func TestNew(t *testing.T) {
	t.Parallel()

	simulated, err := engine.New(config.SpeechConfig{Engine: config.EngineSimulated}, nil)
	require.NoError(t, err)
	assert.IsType(t, &engine.Simulated{}, simulated)
	require.NoError(t, simulated.Close())

	espeak, err := engine.New(config.SpeechConfig{Engine: config.EngineEspeak, BinaryPath: "espeak-ng"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &engine.Subprocess{}, espeak)
	require.NoError(t, espeak.Close())

	_, err = engine.New(config.SpeechConfig{Engine: "festival"}, nil)
	require.ErrorIs(t, err, engine.ErrUnknownKind)
}
