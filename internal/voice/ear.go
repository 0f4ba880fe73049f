// Package voice turns spoken commands into input lines for the cooking
// REPL. A local whisper.cpp binary transcribes short microphone clips; a
// wake phrase switches from idle scanning to capturing one command.
package voice

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/mise/internal/logger"
)

type earState int

const (
	// earDormant scans short clips for a wake phrase and drops the rest.
	earDormant earState = iota
	// earListening collects the command that follows a wake phrase.
	earListening
)

// DefaultWakeWords are matched case-insensitively. The misspellings are
// what whisper tends to hear.
var DefaultWakeWords = []string{
	"hey chef",
	"hey, chef",
	"hey shef",
	"okay chef",
	"mise",
	"meez",
}

// Recorder captures audio for d and returns its transcription.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) (string, error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, d time.Duration) (string, error)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, d time.Duration) (string, error) {
	return f(ctx, d)
}

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithRecordDuration sets how long each command chunk lasts.
func WithRecordDuration(d time.Duration) EarOption {
	return func(e *Ear) {
		if d > 0 {
			e.recordDuration = d
		}
	}
}

// WithDormantDuration sets how long each wake-phrase clip lasts.
func WithDormantDuration(d time.Duration) EarOption {
	return func(e *Ear) {
		if d > 0 {
			e.dormantDuration = d
		}
	}
}

// WithListenTimeout caps how long one command may take.
func WithListenTimeout(d time.Duration) EarOption {
	return func(e *Ear) {
		if d > 0 {
			e.listenTimeout = d
		}
	}
}

// WithWakeWords overrides DefaultWakeWords.
func WithWakeWords(words ...string) EarOption {
	return func(e *Ear) {
		if len(words) > 0 {
			e.wakeWords = words
		}
	}
}

// WithRecorder replaces the whisper recorder.
func WithRecorder(r Recorder) EarOption {
	return func(e *Ear) { e.rec = r }
}

// Ear produces one line on C for every command spoken after a wake phrase.
// "hey chef done 2" in a single clip is sent straight away; a bare
// "hey chef" starts listening until the cook goes quiet or the listen
// timeout runs out.
type Ear struct {
	rec Recorder
	log *logger.Logger

	wakeWords       []string
	recordDuration  time.Duration
	dormantDuration time.Duration
	listenTimeout   time.Duration
	backoff         time.Duration

	mu     sync.Mutex
	state  earState
	textCh chan string
}

// NewEar creates an Ear that records through whisperBin and modelPath,
// writing temporary WAV files under tempDir.
func NewEar(whisperBin, modelPath, tempDir string, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		log:             log,
		wakeWords:       DefaultWakeWords,
		recordDuration:  2 * time.Second,
		dormantDuration: 3 * time.Second,
		listenTimeout:   15 * time.Second,
		backoff:         2 * time.Second,
		state:           earDormant,
		textCh:          make(chan string, 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rec == nil {
		if _, err := exec.LookPath(whisperBin); err != nil {
			log.Error("voice: whisper binary %q not found: %v", whisperBin, err)
		}
		e.rec = &whisperRecorder{bin: whisperBin, model: modelPath, tempDir: tempDir, log: log}
	}
	return e
}

// C delivers recognised commands.
func (e *Ear) C() <-chan string { return e.textCh }

// Run listens until ctx is cancelled. Call it in a goroutine.
func (e *Ear) Run(ctx context.Context) {
	e.log.Info("voice: started (clip=%s, chunk=%s, timeout=%s)",
		e.dormantDuration, e.recordDuration, e.listenTimeout)
	for ctx.Err() == nil {
		switch e.getState() {
		case earDormant:
			e.doDormant(ctx)
		case earListening:
			e.doListening(ctx)
		}
	}
	e.log.Info("voice: stopped")
}

func (e *Ear) getState() earState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Ear) setState(s earState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Ear) doDormant(ctx context.Context) {
	text := cleanTranscription(e.record(ctx, e.dormantDuration))
	if text == "" {
		return
	}
	e.log.Debug("voice/dormant: heard %q", text)

	rest, ok := e.afterWakeWord(text)
	if !ok {
		return
	}
	e.log.Info("voice: wake phrase in %q", text)

	rest = cleanTranscription(rest)
	if rest != "" && !onlyPunctuation(rest) {
		e.send(ctx, rest)
		return
	}
	e.setState(earListening)
}

func (e *Ear) doListening(ctx context.Context) {
	defer e.setState(earDormant)

	const (
		graceEmpty      = 4 // quiet chunks allowed before the cook speaks
		postSpeechEmpty = 2 // quiet chunks that end a command
	)
	deadline := time.Now().Add(e.listenTimeout)
	var parts []string
	empty := 0

	for ctx.Err() == nil && time.Now().Before(deadline) {
		chunk := cleanTranscription(e.record(ctx, e.recordDuration))
		if chunk == "" {
			empty++
			limit := graceEmpty
			if len(parts) > 0 {
				limit = postSpeechEmpty
			}
			if empty >= limit {
				break
			}
			continue
		}
		empty = 0
		if chunk = e.dropWakeWords(chunk); chunk != "" {
			parts = append(parts, chunk)
		}
	}

	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" {
		e.log.Debug("voice: listening ended with no command")
		return
	}
	e.send(ctx, combined)
}

func (e *Ear) send(ctx context.Context, text string) {
	e.log.Info("voice: command %q", text)
	select {
	case e.textCh <- text:
	case <-ctx.Done():
	}
}

// record runs one clip, backing off after a recorder failure so a broken
// microphone does not spin.
func (e *Ear) record(ctx context.Context, d time.Duration) string {
	text, err := e.rec.Record(ctx, d)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Error("voice: %v", err)
			select {
			case <-time.After(e.backoff):
			case <-ctx.Done():
			}
		}
		return ""
	}
	return text
}

// afterWakeWord finds a wake phrase in text and returns what follows it.
// ok is false when no wake phrase is present.
func (e *Ear) afterWakeWord(text string) (rest string, ok bool) {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		idx := strings.Index(lower, strings.ToLower(w))
		if idx < 0 {
			continue
		}
		if end := idx + len(w); end < len(text) {
			rest = text[end:]
		}
		return strings.TrimSpace(strings.TrimLeft(rest, " ,.!?\n\r\t")), true
	}
	return "", false
}

// dropWakeWords removes repeated wake phrases from a command chunk.
func (e *Ear) dropWakeWords(text string) string {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		lower = strings.ReplaceAll(lower, strings.ToLower(w), "")
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(lower), ",.!?"))
}

func onlyPunctuation(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', ',', '.', '!', '?':
		default:
			return false
		}
	}
	return true
}

// whisperRecorder records from the default microphone and transcribes
// with whisper.cpp.
type whisperRecorder struct {
	bin     string
	model   string
	tempDir string
	log     *logger.Logger
}

func (w *whisperRecorder) Record(ctx context.Context, d time.Duration) (string, error) {
	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)
	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(w.bin, w.model, w.tempDir, "wav", callback, verbose)
	if err != nil {
		return "", err
	}
	if err := t.Start(); err != nil {
		return "", err
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return result, nil
}
